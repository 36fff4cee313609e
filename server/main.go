package main

import (
	"flag"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"syncboard/commons"
)

// The relay holds no board state of its own. It assigns session ids, keeps
// the roster, fans actions out to everyone except their sender, and routes
// the bootstrap handshake: request_state goes to every peer of the
// requester, state_response goes back to the requester alone.

type client struct {
	conn     *websocket.Conn
	id       uuid.UUID
	username string

	writeMu sync.Mutex
	mu      sync.Mutex
}

func (c *client) send(msg commons.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(&msg)
}

func (c *client) name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

func (c *client) setName(name string) {
	c.mu.Lock()
	c.username = name
	c.mu.Unlock()
}

type Clients struct {
	list map[uuid.UUID]*client
	mu   sync.RWMutex
}

func NewClients() *Clients {
	return &Clients{list: make(map[uuid.UUID]*client)}
}

func (c *Clients) add(cl *client) {
	c.mu.Lock()
	c.list[cl.id] = cl
	c.mu.Unlock()
}

func (c *Clients) delete(id uuid.UUID) {
	c.mu.Lock()
	cl, ok := c.list[id]
	delete(c.list, id)
	c.mu.Unlock()
	if ok {
		color.Red("removing %s (%s) from client list", cl.name(), id)
		cl.conn.Close()
	}
}

func (c *Clients) getAll() []*client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	all := make([]*client, 0, len(c.list))
	for _, cl := range c.list {
		all = append(all, cl)
	}
	return all
}

func (c *Clients) get(id uuid.UUID) *client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list[id]
}

func (c *Clients) broadcastAll(msg commons.Message) {
	for _, cl := range c.getAll() {
		if err := cl.send(msg); err != nil {
			color.Red("send to %s failed: %s", cl.name(), err)
			c.delete(cl.id)
		}
	}
}

func (c *Clients) broadcastAllExcept(msg commons.Message, except uuid.UUID) {
	for _, cl := range c.getAll() {
		if cl.id == except {
			continue
		}
		if err := cl.send(msg); err != nil {
			color.Red("send to %s failed: %s", cl.name(), err)
			c.delete(cl.id)
		}
	}
}

func (c *Clients) broadcastOne(msg commons.Message, dst uuid.UUID) {
	cl := c.get(dst)
	if cl == nil {
		color.Red("no client %s for routed message, dropping", dst)
		return
	}
	if err := cl.send(msg); err != nil {
		color.Red("send to %s failed: %s", cl.name(), err)
		c.delete(cl.id)
	}
}

// sendUsers broadcasts the roster. Clients use its length to decide whether
// a late joiner has anyone to bootstrap from.
func (c *Clients) sendUsers() {
	c.mu.RLock()
	users := make([]string, 0, len(c.list))
	for id := range c.list {
		users = append(users, id.String())
	}
	c.mu.RUnlock()

	color.Blue("roster: %d connected", len(users))
	c.broadcastAll(commons.Message{Type: commons.UsersMessage, Users: users})
}

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	clients = NewClients()
)

func handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		color.Red("error upgrading connection to websocket: %v", err)
		return
	}

	clientID := uuid.New()
	cl := &client{conn: conn, id: clientID}
	clients.add(cl)
	defer func() {
		clients.delete(clientID)
		clients.sendUsers()
	}()

	// the client's engine uses this id as its requesterId
	if err := cl.send(commons.Message{Type: commons.SessionMessage, SessionID: clientID.String()}); err != nil {
		color.Red("failed to send session id to %s: %s", clientID, err)
		return
	}
	clients.sendUsers()

	for {
		var msg commons.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				color.Red("failed to read from %s: %v", cl.name(), err)
			}
			color.Red("client %s disconnected", cl.name())
			return
		}

		t := time.Now().Format(time.ANSIC)
		switch msg.Type {
		case commons.ActionMessage:
			if msg.Action != nil {
				color.Green("%s >> action %s %s from %s", t, msg.Action.Type, msg.Action.ID, clientID)
			}
			clients.broadcastAllExcept(msg, clientID)

		case commons.StateSyncMessage:
			clients.broadcastAllExcept(msg, clientID)

		case commons.RequestStateMessage:
			color.Green("%s >> state request from %s", t, msg.RequesterID)
			clients.broadcastAllExcept(msg, clientID)

		case commons.StateResponseMessage:
			dst, err := uuid.Parse(msg.RequesterID)
			if err != nil {
				color.Red("state response with bad requester id %q, dropping", msg.RequesterID)
				continue
			}
			color.Green("%s >> state response routed to %s", t, msg.RequesterID)
			clients.broadcastOne(msg, dst)

		case commons.JoinMessage:
			cl.setName(msg.Username)
			color.Green("%s >> %s has joined (ID: %s)", t, msg.Username, clientID)
			clients.broadcastAllExcept(msg, clientID)
			clients.sendUsers()

		default:
			color.Green("%s >> unknown message type %q from %s", t, msg.Type, clientID)
		}
	}
}

func main() {
	addr := flag.String("addr", ":8080", "Server's network address")
	flag.Parse()

	r := mux.NewRouter()
	r.HandleFunc("/ws", handleConn)

	server := &http.Server{
		Addr:    *addr,
		Handler: r,
	}

	log.Printf("Starting relay on %s", *addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatal("Error starting server, exiting.", err)
	}
}
