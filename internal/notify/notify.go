package notify

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"bookhub/pkg/models"
)

const (
	RegisterMessageType = "register"
	LoanDueMessageType  = "loan.due"
)

type RegisterMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type LoanDueMessage struct {
	Type      string    `json:"type"`
	BookID    string    `json:"book_id"`
	BookTitle string    `json:"book_title,omitempty"`
	DueAt     time.Time `json:"due_at"`
}

type Client struct {
	UserID string
	Addr   *net.UDPAddr
}

type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

func (r *Registry) Register(userID string, addr *net.UDPAddr) {
	if userID == "" || addr == nil {
		return
	}
	r.mu.Lock()
	r.clients[userID] = Client{UserID: userID, Addr: addr}
	r.mu.Unlock()
}

func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	delete(r.clients, userID)
	r.mu.Unlock()
}

func (r *Registry) Lookup(userID string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[userID]
	return c, ok
}

func (r *Registry) Snapshot() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clients := make([]Client, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, client)
	}
	return clients
}

// Server accepts UDP registrations and pushes due-date notices back to
// the registered address of each borrower.
type Server struct {
	addr     string
	registry *Registry
	logger   *log.Logger

	mu   sync.Mutex
	conn *net.UDPConn
}

func NewServer(addr string, registry *Registry, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{addr: addr, registry: registry, logger: logger}
}

func (s *Server) Run() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer conn.Close()

	s.logger.Printf("[notify] UDP server listening on %s", s.addr)

	buffer := make([]byte, 2048)
	for {
		n, addr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			return err
		}
		msg, err := parseRegisterMessage(buffer[:n])
		if err != nil {
			s.logger.Printf("[notify] invalid UDP message from %s: %v", addr, err)
			continue
		}
		if msg.Type != RegisterMessageType {
			continue
		}
		s.registry.Register(msg.UserID, addr)
		s.logger.Printf("[notify] registered UDP client %s (%s)", msg.UserID, addr)
	}
}

// NotifyDue pushes a loan.due notice to the borrower's registered client,
// if any. Delivery is best effort: one retry, then the client is evicted.
func (s *Server) NotifyDue(rec models.BorrowRecord) {
	if s.udpConn() == nil {
		s.logger.Printf("[notify] UDP server not running")
		return
	}

	client, ok := s.registry.Lookup(rec.UserID)
	if !ok {
		return
	}

	payload, err := json.Marshal(LoanDueMessage{
		Type:      LoanDueMessageType,
		BookID:    rec.BookID,
		BookTitle: rec.BookTitle,
		DueAt:     rec.DueAt,
	})
	if err != nil {
		s.logger.Printf("[notify] failed to marshal notice: %v", err)
		return
	}

	s.sendWithRetry(client, payload)
}

func (s *Server) sendWithRetry(client Client, payload []byte) {
	if err := s.sendOnce(client, payload); err == nil {
		return
	}
	if err := s.sendOnce(client, payload); err != nil {
		s.logger.Printf("[notify] failed to notify user %s at %s: %v", client.UserID, client.Addr, err)
		s.registry.Remove(client.UserID)
	}
}

func (s *Server) sendOnce(client Client, payload []byte) error {
	if client.Addr == nil {
		return errors.New("missing client address")
	}
	conn := s.udpConn()
	if conn == nil {
		return errors.New("server not running")
	}
	_, err := conn.WriteToUDP(payload, client.Addr)
	return err
}

// conn is written by Run's goroutine and read from NotifyDue callers.
func (s *Server) udpConn() *net.UDPConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func parseRegisterMessage(data []byte) (RegisterMessage, error) {
	var msg RegisterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, err
	}
	if msg.UserID == "" || msg.Type == "" {
		return msg, errors.New("missing required fields")
	}
	return msg, nil
}
