package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/writer"
)

type Flags struct {
	Server      string
	Secure      bool
	Login       bool
	Debug       bool
	SettleDelay time.Duration
}

func parseFlags() Flags {
	serverAddr := flag.String("server", "localhost:8080", "The network address of the relay server")

	useSecureConn := flag.Bool("secure", false, "Enable a secure WebSocket connection (wss://)")

	enableDebug := flag.Bool("debug", false, "Enable debugging mode to show more verbose logs")

	enableLogin := flag.Bool("login", false, "Enable the name prompt instead of a generated one")

	settleDelay := flag.Duration("settle", 250*time.Millisecond, "Delay before a late joiner requests board state")

	flag.Parse()

	return Flags{
		Server:      *serverAddr,
		Secure:      *useSecureConn,
		Debug:       *enableDebug,
		Login:       *enableLogin,
		SettleDelay: *settleDelay,
	}
}

func createConn(flags Flags) (*websocket.Conn, *http.Response, error) {
	var u url.URL
	if flags.Secure {
		u = url.URL{Scheme: "wss", Host: flags.Server, Path: "/ws"}
	} else {
		u = url.URL{Scheme: "ws", Host: flags.Server, Path: "/ws"}
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 2 * time.Minute,
	}

	return dialer.Dial(u.String(), nil)
}

func setupLogger(logger *logrus.Logger) (*os.File, *os.File, error) {
	logPath := "log.log"
	debugLogPath := "log-debug.log"

	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // skipcq: GSC-G302
	if err != nil {
		fmt.Printf("Logger error, exiting: %s\n", err)
		return nil, nil, err
	}

	debugLogFile, err := os.OpenFile(debugLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // skipcq: GSC-G302
	if err != nil {
		fmt.Printf("Logger error, exiting: %s\n", err)
		return nil, nil, err
	}

	// keep the terminal clean; everything goes to the hook files
	logger.SetOutput(io.Discard)
	logger.SetFormatter(&logrus.JSONFormatter{})
	if flags.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	// hook for warnings and errors
	logger.AddHook(&writer.Hook{
		Writer: logFile,
		LogLevels: []logrus.Level{
			logrus.WarnLevel,
			logrus.ErrorLevel,
			logrus.FatalLevel,
			logrus.PanicLevel,
		},
	})

	// hook for debug/info logs
	logger.AddHook(&writer.Hook{
		Writer: debugLogFile,
		LogLevels: []logrus.Level{
			logrus.TraceLevel,
			logrus.DebugLevel,
			logrus.InfoLevel,
		},
	})

	return logFile, debugLogFile, nil
}

func closeLogFiles(logFile, debugLogFile *os.File) {
	if err := logFile.Close(); err != nil {
		fmt.Printf("Failed to close log file: %s", err)
		return
	}

	if err := debugLogFile.Close(); err != nil {
		fmt.Printf("Failed to close debug log file: %s", err)
		return
	}
}
