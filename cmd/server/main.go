package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	"github.com/astromechza/da-collab/internal/contentstore"
	"github.com/astromechza/da-collab/internal/coordinator"
	"github.com/astromechza/da-collab/internal/httpapi"
	"github.com/astromechza/da-collab/internal/storage"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	// Loaded before flags are defined so DA_COLLAB_ADDR/DA_COLLAB_DB from a
	// .env file can supply the flag defaults below, overridable in turn by
	// an explicit -addr/-db on the command line.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "err", err)
	}

	addrVar := flag.String("addr", envOrDefault("DA_COLLAB_ADDR", "localhost:8080"), "the address to listen on")
	dbPathVar := flag.String("db", envOrDefault("DA_COLLAB_DB", "collab.sqlite3"), "path to the sqlite database backing durable storage")
	flag.Parse()

	slog.Info("opening database", "path", *dbPathVar)
	db, err := sql.Open("sqlite3", *dbPathVar)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.EnsureSchema(db); err != nil {
		return err
	}

	mgr := coordinator.NewManager(coordinator.Config{
		Store: contentstore.New(),
		Storage: func(docName string) storage.KVStore {
			return storage.NewSQLiteKV(db, docName)
		},
	}, slog.Default())

	srv := httpapi.New(mgr, slog.Default())
	httpServer := &http.Server{Addr: *addrVar, Handler: srv.Router()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg := new(sync.WaitGroup)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server listen failed", "err", err)
		}
	}()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-exit:
		slog.Info("signal caught", "sig", sig)
	case <-ctx.Done():
	}
	cancel()
	_ = httpServer.Close()

	wg.Wait()
	slog.Info("shutdown complete")
	return nil
}

// envOrDefault reads key from the environment (populated by godotenv.Load
// above, if a .env file is present), falling back to def if unset or blank.
func envOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
