package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sanity-io/litter"

	"syncboard/board"
	"syncboard/commons"
	"syncboard/engine"
	"syncboard/history"
)

// wsTransport adapts a gorilla connection to the engine's Transport.
type wsTransport struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (t *wsTransport) Send(msg commons.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteJSON(&msg)
}

func readPump(conn *websocket.Conn, eng *engine.Engine) {
	for {
		var msg commons.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("websocket error: %v", err)
			}
			eng.HandleDisconnected()
			fmt.Println("lost connection!")
			return
		}
		logger.Debugf("message received: %s", msg.Type)
		eng.HandleMessage(msg)
	}
}

const helpText = `commands:
  add <type> <x> <y> [w] [h]     add an object (rectangle, circle, path, ...)
  update <id> k=v [k=v ...]      patch fields: x y width height stroke fill strokeWidth opacity
  delete <id>                    remove an object
  select <id> [id ...]           replace the selection (never synced)
  clearsel                       empty the selection
  erase <pathId>                 erase a whole path (no surviving segments)
  clear                          clear the canvas
  undo | redo                    walk your own history
  dump                           print the state snapshot
  status                         connection phase and counts
  quit`

// runCommands is the stand-in for the canvas UI: a line-oriented driver for
// the store, history and engine.
func runCommands(s *bufio.Scanner, store *board.Store, hist *history.Manager, eng *engine.Engine, user string) {
	fmt.Print("> ")
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) == 0 {
			fmt.Print("> ")
			continue
		}

		switch fields[0] {
		case "help":
			fmt.Println(helpText)

		case "add":
			if len(fields) < 4 {
				fmt.Println("usage: add <type> <x> <y> [w] [h]")
				break
			}
			template := board.Object{Type: board.ObjectType(fields[1])}
			template.X, _ = strconv.ParseFloat(fields[2], 64)
			template.Y, _ = strconv.ParseFloat(fields[3], 64)
			if len(fields) > 4 {
				template.Width, _ = strconv.ParseFloat(fields[4], 64)
			}
			if len(fields) > 5 {
				template.Height, _ = strconv.ParseFloat(fields[5], 64)
			}
			obj := store.AddObject(template, user)
			fmt.Printf("added %s %s\n", obj.Type, obj.ID)

		case "update":
			if len(fields) < 3 {
				fmt.Println("usage: update <id> k=v [k=v ...]")
				break
			}
			patch, err := parsePatch(fields[2:])
			if err != nil {
				fmt.Println(err)
				break
			}
			if store.UpdateObject(fields[1], patch, user) {
				fmt.Println("updated")
			} else {
				fmt.Println("no such object")
			}

		case "delete":
			if len(fields) != 2 {
				fmt.Println("usage: delete <id>")
				break
			}
			if store.DeleteObject(fields[1], user) {
				fmt.Println("deleted")
			} else {
				fmt.Println("no such object")
			}

		case "select":
			store.SelectObjects(fields[1:], user)
			fmt.Printf("selected %d\n", len(fields)-1)

		case "clearsel":
			store.ClearSelection(user)

		case "erase":
			if len(fields) != 2 {
				fmt.Println("usage: erase <pathId>")
				break
			}
			if store.ErasePath(fields[1], nil, user) != nil {
				fmt.Println("erased")
			} else {
				fmt.Println("no such path")
			}

		case "clear":
			store.ClearCanvas(user)
			fmt.Println("canvas cleared")

		case "undo":
			if hist.Undo(user) {
				fmt.Println("undone")
			} else {
				fmt.Println("nothing to undo")
			}

		case "redo":
			if hist.Redo(user) {
				fmt.Println("redone")
			} else {
				fmt.Println("nothing to redo")
			}

		case "dump":
			litter.Dump(store.Snapshot())

		case "status":
			fmt.Printf("phase=%s session=%s objects=%d selected=%d waiting=%v undo=%v redo=%v\n",
				eng.Phase(), eng.SessionID(), store.ObjectCount(), len(store.Selection()),
				eng.WaitingForInitialState(), hist.CanUndo(user), hist.CanRedo(user))

		case "quit", "exit":
			return

		default:
			fmt.Printf("unknown command %q, try 'help'\n", fields[0])
		}
		fmt.Print("> ")
	}
}

func parsePatch(args []string) (board.Patch, error) {
	var p board.Patch
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return p, fmt.Errorf("bad field %q, want k=v", arg)
		}
		switch k {
		case "x", "y", "width", "height", "strokeWidth", "opacity":
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return p, fmt.Errorf("bad number for %s: %q", k, v)
			}
			switch k {
			case "x":
				p.X = &f
			case "y":
				p.Y = &f
			case "width":
				p.Width = &f
			case "height":
				p.Height = &f
			case "strokeWidth":
				p.StrokeWidth = &f
			case "opacity":
				p.Opacity = &f
			}
		case "stroke":
			p.Stroke = &v
		case "fill":
			p.Fill = &v
		default:
			return p, fmt.Errorf("unknown field %q", k)
		}
	}
	return p, nil
}
