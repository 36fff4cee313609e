package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/Pallinder/go-randomdata"
	"github.com/sirupsen/logrus"

	"syncboard/board"
	"syncboard/commons"
	"syncboard/engine"
	"syncboard/history"
)

var (
	logger = logrus.New()
	flags  Flags
)

func main() {
	flags = parseFlags()
	s := bufio.NewScanner(os.Stdin)

	var name string
	if flags.Login {
		fmt.Print("Enter your name: ")
		s.Scan()
		name = s.Text()
	} else {
		name = randomdata.SillyName()
	}

	logFile, debugLogFile, err := setupLogger(logger)
	if err != nil {
		fmt.Printf("Failed to setup logger, exiting: %s\n", err)
		return
	}
	defer closeLogFiles(logFile, debugLogFile)

	conn, _, err := createConn(flags)
	if err != nil {
		fmt.Printf("Connection error, exiting: %s\n", err)
		return
	}
	defer conn.Close()

	store := board.NewStore(logger)
	hist := history.NewManager(store, logger)
	defer hist.Close()

	transport := &wsTransport{conn: conn}
	eng := engine.New(store, transport, engine.Config{
		SettleDelay: flags.SettleDelay,
	}, logger)
	defer eng.Close()
	eng.HandleConnected()

	join := commons.Message{Type: commons.JoinMessage, Username: name}
	if err := transport.Send(join); err != nil {
		fmt.Printf("Failed to announce join, exiting: %s\n", err)
		return
	}

	go readPump(conn, eng)

	fmt.Printf("Connected as %s. Type 'help' for commands.\n", name)
	runCommands(s, store, hist, eng, name)
	fmt.Println("exiting session.")
}
