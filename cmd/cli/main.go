package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

type authResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Token string `json:"token"`
	} `json:"data"`
}

func main() {
	global := flag.NewFlagSet("bookhub", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	client := &http.Client{Timeout: 15 * time.Second}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "books":
		handleBooks(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "borrow":
		handleBorrow(ctx, client, *baseURL, *tokenPath, args[1:])
	case "return":
		handleReturn(ctx, client, *baseURL, *tokenPath, args[1:])
	case "review":
		handleReview(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "loans":
		handleLoans(ctx, client, *baseURL, *tokenPath, args[1:])
	case "history":
		handleHistory(ctx, client, *baseURL, *tokenPath, args[1:])
	case "feed":
		handleFeed(*baseURL, sub, args[2:])
	case "notify":
		handleNotify(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "discuss":
		handleDiscuss(*baseURL, sub, args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		payload := map[string]string{"email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Data.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ logged in")
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *name == "" || *email == "" || *password == "" {
			log.Fatal("name, email, and password are required")
		}

		payload := map[string]string{"name": *name, "email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/register", "", payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Data.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ registered and logged in")
	case "me":
		token := mustToken(tokenPath)
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/auth/me", token, nil, &resp); err != nil {
			log.Fatalf("me failed: %v", err)
		}
		printJSON(resp)
	case "logout":
		token, _ := readToken(tokenPath)
		if token != "" {
			// best effort server-side token revocation
			_ = doJSON(ctx, client, http.MethodPost, baseURL+"/auth/logout", token, nil, nil)
		}
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("✅ logged out")
	default:
		log.Fatal("usage: bookhub auth <login|register|me|logout>")
	}
}

func handleBooks(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("books list", flag.ExitOnError)
		search := fs.String("q", "", "search in title and author")
		genre := fs.String("genre", "", "genre filter")
		available := fs.String("available", "", "availability filter (true|false)")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/books")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		if *search != "" {
			qv.Set("search", *search)
		}
		if *genre != "" {
			qv.Set("genre", *genre)
		}
		if *available != "" {
			qv.Set("available", *available)
		}
		u.RawQuery = qv.Encode()

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("books show", flag.ExitOnError)
		id := fs.String("id", "", "book id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("book id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/books/"+url.PathEscape(*id), "", nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	case "add":
		fs := flag.NewFlagSet("books add", flag.ExitOnError)
		title := fs.String("title", "", "title")
		author := fs.String("author", "", "author")
		isbn := fs.String("isbn", "", "ISBN")
		description := fs.String("description", "", "description")
		genre := fs.String("genre", "", "genre")
		year := fs.Int("year", 0, "published year")
		coverURL := fs.String("cover", "", "cover image URL")
		_ = fs.Parse(args)

		if *title == "" || *author == "" || *isbn == "" {
			log.Fatal("title, author, and isbn are required")
		}

		token := mustToken(tokenPath)
		payload := map[string]any{
			"title":          *title,
			"author":         *author,
			"isbn":           *isbn,
			"description":    *description,
			"genre":          *genre,
			"published_year": *year,
			"cover_url":      *coverURL,
		}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/books", token, payload, &resp); err != nil {
			log.Fatalf("add failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: bookhub books <list|show|add>")
	}
}

func handleBorrow(ctx context.Context, client *http.Client, baseURL, tokenPath string, args []string) {
	fs := flag.NewFlagSet("borrow", flag.ExitOnError)
	id := fs.String("id", "", "book id")
	_ = fs.Parse(args)
	if *id == "" {
		log.Fatal("book id is required")
	}

	token := mustToken(tokenPath)
	var resp map[string]any
	if err := doJSON(ctx, client, http.MethodPost, baseURL+"/books/"+url.PathEscape(*id)+"/borrow", token, nil, &resp); err != nil {
		log.Fatalf("borrow failed: %v", err)
	}
	printJSON(resp)
}

func handleReturn(ctx context.Context, client *http.Client, baseURL, tokenPath string, args []string) {
	fs := flag.NewFlagSet("return", flag.ExitOnError)
	id := fs.String("id", "", "book id")
	_ = fs.Parse(args)
	if *id == "" {
		log.Fatal("book id is required")
	}

	token := mustToken(tokenPath)
	var resp map[string]any
	if err := doJSON(ctx, client, http.MethodPost, baseURL+"/books/"+url.PathEscape(*id)+"/return", token, nil, &resp); err != nil {
		log.Fatalf("return failed: %v", err)
	}
	printJSON(resp)
}

func handleReview(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "add":
		fs := flag.NewFlagSet("review add", flag.ExitOnError)
		id := fs.String("id", "", "book id")
		rating := fs.Int("rating", 0, "rating 1-5")
		comment := fs.String("comment", "", "review text")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("book id is required")
		}

		token := mustToken(tokenPath)
		payload := map[string]any{"rating": *rating, "comment": *comment}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/books/"+url.PathEscape(*id)+"/review", token, payload, &resp); err != nil {
			log.Fatalf("review failed: %v", err)
		}
		printJSON(resp)
	case "list":
		fs := flag.NewFlagSet("review list", flag.ExitOnError)
		id := fs.String("id", "", "book id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("book id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/books/"+url.PathEscape(*id)+"/reviews", "", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: bookhub review <add|list>")
	}
}

func handleLoans(ctx context.Context, client *http.Client, baseURL, tokenPath string, args []string) {
	token := mustToken(tokenPath)
	var resp map[string]any
	if err := doJSON(ctx, client, http.MethodGet, baseURL+"/users/me/loans", token, nil, &resp); err != nil {
		log.Fatalf("loans failed: %v", err)
	}
	printJSON(resp)
}

func handleHistory(ctx context.Context, client *http.Client, baseURL, tokenPath string, args []string) {
	token := mustToken(tokenPath)
	var resp map[string]any
	if err := doJSON(ctx, client, http.MethodGet, baseURL+"/users/me/history", token, nil, &resp); err != nil {
		log.Fatalf("history failed: %v", err)
	}
	printJSON(resp)
}

func handleFeed(baseURL, sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("feed listen", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP feed server address")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		for {
			if err := runFeedTCP(*addr, *pretty); err != nil {
				log.Printf("[feed] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	case "subscribe":
		fs := flag.NewFlagSet("feed subscribe", flag.ExitOnError)
		wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on API host)")
		_ = fs.Parse(args)

		endpoint := *wsURL
		if endpoint == "" {
			var err error
			endpoint, err = websocketURL(baseURL, "/ws")
			if err != nil {
				log.Fatalf("ws url: %v", err)
			}
		}
		if err := runWebSocket(endpoint); err != nil {
			log.Fatalf("subscribe failed: %v", err)
		}
	default:
		log.Fatal("usage: bookhub feed <listen|subscribe>")
	}
}

func handleNotify(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("notify listen", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7071", "UDP notify server address")
		userID := fs.String("user-id", "", "user id (defaults to the logged-in user)")
		_ = fs.Parse(args)

		id := *userID
		if id == "" {
			token := mustToken(tokenPath)
			var resp struct {
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			}
			if err := doJSON(ctx, client, http.MethodGet, baseURL+"/auth/me", token, nil, &resp); err != nil {
				log.Fatalf("resolve user id: %v", err)
			}
			id = resp.Data.ID
		}
		if err := runNotifyUDP(*addr, id); err != nil {
			log.Fatalf("notify listen failed: %v", err)
		}
	default:
		log.Fatal("usage: bookhub notify listen")
	}
}

func handleDiscuss(baseURL, sub string, args []string) {
	switch sub {
	case "join":
		fs := flag.NewFlagSet("discuss join", flag.ExitOnError)
		id := fs.String("id", "", "book id")
		name := fs.String("name", "guest", "display name")
		wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws/discuss/<id> on API host)")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("book id is required")
		}

		endpoint := *wsURL
		if endpoint == "" {
			var err error
			endpoint, err = websocketURL(baseURL, "/ws/discuss/"+url.PathEscape(*id))
			if err != nil {
				log.Fatalf("ws url: %v", err)
			}
			endpoint += "?user=" + url.QueryEscape(*name)
		}
		if err := runDiscussWS(endpoint, *name); err != nil {
			log.Fatalf("discuss join failed: %v", err)
		}
	default:
		log.Fatal("usage: bookhub discuss join")
	}
}

func runFeedTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[feed] connected to %s", addr)
	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		line := reader.Bytes()
		if !pretty {
			fmt.Println(string(line))
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[feed] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

func runNotifyUDP(addr, userID string) error {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	reg, err := json.Marshal(map[string]string{"type": "register", "user_id": userID})
	if err != nil {
		return err
	}
	if _, err := conn.Write(reg); err != nil {
		return err
	}
	log.Printf("[notify] registered %s at %s, waiting for due-date notices", userID, addr)

	buf := make([]byte, 2048)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return err
		}
		fmt.Println(string(buf[:n]))
	}
}

func runDiscussWS(wsURL, name string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Printf("[discuss] connected to %s as %s", wsURL, name)

	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			fmt.Println(string(msg))
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		payload, _ := json.Marshal(map[string]string{"text": text})
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	return nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.bookhub-token.json"
	}
	return filepath.Join(home, ".bookhub", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}

func mustToken(path string) string {
	token, err := readToken(path)
	if err != nil {
		log.Fatalf("token not found, please login: %v", err)
	}
	if token == "" {
		log.Fatal("token empty, please login")
	}
	return token
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("bookhub <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|me|logout")
	fmt.Println("  books list|show|add")
	fmt.Println("  borrow -id <book-id>")
	fmt.Println("  return -id <book-id>")
	fmt.Println("  review add|list")
	fmt.Println("  loans")
	fmt.Println("  history")
	fmt.Println("  feed listen|subscribe")
	fmt.Println("  notify listen")
	fmt.Println("  discuss join")
}
