// Package job holds the background tasks scheduled by the web server.
package job

import (
	"github.com/JosKno/CapaIntermedia/database"
	"github.com/JosKno/CapaIntermedia/logger"
	"github.com/JosKno/CapaIntermedia/util/common"
)

// CheckpointJob folds the SQLite write-ahead log back into the database
// file so it does not grow without bound between restarts.
type CheckpointJob struct{}

func NewCheckpointJob() *CheckpointJob {
	return new(CheckpointJob)
}

func (j *CheckpointJob) Run() {
	defer common.Recover("checkpoint job")
	if !database.UsesSQLite() {
		return
	}
	if err := database.Checkpoint(); err != nil {
		logger.Warning("WAL checkpoint failed:", err)
		return
	}
	logger.Debug("WAL checkpoint completed")
}
