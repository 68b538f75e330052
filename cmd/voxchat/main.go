package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/voxchat/voxchat-client/internal/api"
	"github.com/voxchat/voxchat-client/internal/call"
	"github.com/voxchat/voxchat-client/internal/chatlist"
	"github.com/voxchat/voxchat-client/internal/config"
	"github.com/voxchat/voxchat-client/internal/stats"
	"github.com/voxchat/voxchat-client/internal/store"
	"github.com/voxchat/voxchat-client/internal/transport"
	"github.com/voxchat/voxchat-client/internal/types"
)

var (
	serverURL string
	storePath string
	debugAddr string
	username  string
	password  string
)

func main() {
	flag.StringVar(&serverURL, "server", "http://localhost:8000", "backend origin")
	flag.StringVar(&storePath, "store", "voxchat.db", "path to the local state file")
	flag.StringVar(&debugAddr, "debug-addr", "", "address for the /debug/vars listener, disabled when empty")
	flag.StringVar(&username, "username", "", "log in with this username when no stored credential is usable")
	flag.StringVar(&password, "password", "", "password for -username")
	flag.Parse()

	logger := log.New(os.Stderr, "[voxchat] ", log.LstdFlags)

	cfg, err := config.NewConfig(serverURL, storePath, debugAddr)
	if err != nil {
		logger.Fatal("config:", err)
	}

	st, err := store.New(cfg.StorePath)
	if err != nil {
		logger.Fatal("store open:", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Println("store close:", err)
		}
	}()

	mux := http.NewServeMux()
	statsUpdater := stats.NewStatsUpdater(mux)
	statsUpdater.Run()
	defer statsUpdater.Stop()

	var debugSrv *http.Server
	if cfg.DebugAddr != "" {
		debugSrv = &http.Server{
			Addr:    cfg.DebugAddr,
			Handler: handlers.CombinedLoggingHandler(os.Stderr, mux),
		}
		go func() {
			logger.Printf("debug listener on %s", cfg.DebugAddr)
			if err := debugSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Println("debug listener:", err)
			}
		}()
	}

	restClient := api.NewClient(cfg.ServerURL, logger)
	ts := transport.NewClient(cfg.WebsocketURL, restClient, logger, statsUpdater)

	// A stored, unexpired token gates auto-connect at startup.
	token, err := st.Token()
	switch {
	case errors.Is(err, store.ErrNotFound):
		logger.Println("no stored credential")
		token = ""
	case err != nil:
		logger.Fatal("load token:", err)
	case api.TokenExpired(token):
		logger.Println("stored credential expired")
		token = ""
	}

	if token == "" && username != "" {
		loginCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		tok, err := restClient.Login(loginCtx, username, password, false)
		cancel()
		if err != nil {
			logger.Fatal("login:", err)
		}
		token = tok.AccessToken
		if err := st.SaveToken(token); err != nil {
			logger.Println("save token:", err)
		}
	}

	if token == "" {
		logger.Println("staying offline until login")
	} else {
		restClient.SetToken(token)
		ts.Connect(token)
	}

	var self types.User
	if token != "" {
		meCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		self, err = restClient.Me(meCtx)
		cancel()
		if err != nil {
			logger.Println("fetch profile:", err)
		}
	}

	callManager := call.NewManager(ts, nil, self, logger, statsUpdater)
	callManager.Start()
	defer callManager.Stop()

	chats := chatlist.NewManager(restClient, ts, self, logger)
	chats.Start()
	defer chats.Stop()

	if ts.IsConnected() {
		loadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := chats.Load(loadCtx); err != nil {
			logger.Println("load conversations:", err)
		}
		cancel()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigs
	logger.Printf("received signal: %s\n", sig)

	// Persist the list so the next start can render before any REST call.
	entries := chats.List().Entries()
	previews := make([]store.Preview, len(entries))
	for i, e := range entries {
		previews[i] = store.Preview{
			Kind:     e.Kind,
			PeerId:   e.Id,
			Name:     e.Name,
			Avatar:   e.Avatar,
			Content:  chatlist.PreviewText(e.LastContent, e.LastMsgType),
			MsgType:  e.LastMsgType,
			LastTime: e.LastTime,
			Unread:   e.Unread,
		}
	}
	if err := st.SavePreviews(previews); err != nil {
		logger.Println("save previews:", err)
	}

	if debugSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := debugSrv.Shutdown(shutdownCtx); err != nil {
			logger.Println("debug listener shutdown:", err)
		}
	}

	ts.Close()
	logger.Println("shutdown complete")
}
