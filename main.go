package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/JosKno/CapaIntermedia/config"
	"github.com/JosKno/CapaIntermedia/database"
	"github.com/JosKno/CapaIntermedia/logger"
	"github.com/JosKno/CapaIntermedia/web"
	"github.com/JosKno/CapaIntermedia/web/service"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func initLogger() {
	level, err := logger.LevelFor(config.GetLogLevel())
	if err != nil {
		log.Fatal(err)
	}
	logger.InitLogger(level)
}

func openDB() error {
	return database.InitDB(config.GetDatabaseConfig())
}

func runWebServer() {
	log.Printf("%v %v", config.GetName(), config.GetVersion())
	initLogger()

	if err := openDB(); err != nil {
		log.Fatal(err)
	}
	defer database.CloseDB()

	server := web.NewServer()
	if err := server.Start(); err != nil {
		log.Println(err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	// Trap shutdown signals
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			server = web.NewServer()
			if err := server.Start(); err != nil {
				log.Println(err)
				return
			}
		default:
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			return
		}
	}
}

// checkSQLiteFile refuses to migrate over a file that is not a SQLite
// database. A missing file is fine, it will be created.
func checkSQLiteFile(cfg *config.DatabaseConfig) error {
	if !cfg.IsSQLite() {
		return nil
	}
	f, err := os.Open(cfg.SQLite.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	if st, err := f.Stat(); err == nil && st.Size() == 0 {
		return nil
	}
	ok, err := database.IsSQLiteDB(f)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s is not a SQLite database", cfg.SQLite.Path)
	}
	return nil
}

func migrateDb() {
	cfg := config.GetDatabaseConfig()
	if err := checkSQLiteFile(cfg); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Start migrating database...")
	if err := database.InitDB(cfg); err != nil {
		log.Fatal(err)
	}
	defer database.CloseDB()
	fmt.Println("Migration done!")
}

func setAdmin(email string, admin bool) {
	if email == "" {
		fmt.Println("--email is required")
		os.Exit(1)
	}
	if err := openDB(); err != nil {
		log.Fatal(err)
	}
	defer database.CloseDB()

	userService := service.UserService{}
	if err := userService.SetAdmin(email, admin); err != nil {
		fmt.Println("update role failed:", err)
		return
	}
	if admin {
		fmt.Printf("%s is now an administrator\n", email)
	} else {
		fmt.Printf("%s is no longer an administrator\n", email)
	}
}

func listUsers() {
	if err := openDB(); err != nil {
		log.Fatal(err)
	}
	defer database.CloseDB()

	userService := service.UserService{}
	users, err := userService.ListUsers()
	if err != nil {
		fmt.Println("list users failed:", err)
		return
	}
	out, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(string(out))
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Println("could not load .env:", err)
	}

	var rootCmd = &cobra.Command{
		Use: config.GetName(),
	}

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the web server",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	var migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Run: func(cmd *cobra.Command, args []string) {
			migrateDb()
		},
	}

	var userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var grantCmd = &cobra.Command{
		Use:   "grant-admin",
		Short: "Give a user the administrator role",
		Run: func(cmd *cobra.Command, args []string) {
			email, _ := cmd.Flags().GetString("email")
			setAdmin(email, true)
		},
	}

	var revokeCmd = &cobra.Command{
		Use:   "revoke-admin",
		Short: "Remove the administrator role from a user",
		Run: func(cmd *cobra.Command, args []string) {
			email, _ := cmd.Flags().GetString("email")
			setAdmin(email, false)
		},
	}

	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "Print every user as JSON",
		Run: func(cmd *cobra.Command, args []string) {
			listUsers()
		},
	}

	grantCmd.Flags().String("email", "", "email of the user")
	revokeCmd.Flags().String("email", "", "email of the user")

	userCmd.AddCommand(grantCmd, revokeCmd, listCmd)
	rootCmd.AddCommand(runCmd, migrateCmd, userCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
