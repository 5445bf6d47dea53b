package photo

import (
	"errors"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"syscall"
)

// Transport-stage upload failures. Each one maps to a distinct message shown
// to the client.
var (
	ErrUploadNoFile     = errors.New("no file was uploaded")
	ErrUploadServerSize = errors.New("the file exceeds the maximum size allowed by the server")
	ErrUploadFormSize   = errors.New("the file exceeds the maximum size allowed by the form")
	ErrUploadPartial    = errors.New("the file was only partially uploaded")
	ErrUploadNoTmpDir   = errors.New("missing temporary folder")
	ErrUploadCantWrite  = errors.New("failed to write the file to disk")
	ErrUploadUnknown    = errors.New("unknown error while uploading the file")
)

// Upload is a received file. Err is set when the transfer itself failed.
type Upload struct {
	Name string
	Size int64
	Data []byte
	Err  error
}

// Missing reports whether the client sent no file at all.
func (u *Upload) Missing() bool {
	return u == nil || errors.Is(u.Err, ErrUploadNoFile)
}

// FromRequest reads the multipart file field of r into an Upload. Transport
// errors are classified rather than returned so validation can report them.
func FromRequest(r *http.Request, field string) *Upload {
	file, header, err := r.FormFile(field)
	if err != nil {
		return &Upload{Err: classifyUploadError(err)}
	}
	defer file.Close()

	u := &Upload{Name: header.Filename, Size: header.Size}
	u.Data, err = io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		u.Err = classifyUploadError(err)
	}
	return u
}

// FromFile builds an Upload from a file on disk.
func FromFile(path string) *Upload {
	f, err := os.Open(path)
	if err != nil {
		return &Upload{Name: path, Err: classifyUploadError(err)}
	}
	defer f.Close()

	u := &Upload{Name: path}
	if st, err := f.Stat(); err == nil {
		u.Size = st.Size()
	}
	u.Data, err = io.ReadAll(io.LimitReader(f, MaxUploadSize+1))
	if err != nil {
		u.Err = classifyUploadError(err)
	}
	return u
}

func classifyUploadError(err error) error {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return ErrUploadNoFile
	case errors.As(err, &maxBytes):
		return ErrUploadServerSize
	case errors.Is(err, multipart.ErrMessageTooLarge):
		return ErrUploadFormSize
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return ErrUploadPartial
	case errors.Is(err, fs.ErrNotExist):
		return ErrUploadNoTmpDir
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.ENOSPC):
		return ErrUploadCantWrite
	}
	return ErrUploadUnknown
}
