package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bookhub/pkg/database"
)

type seedBook struct {
	title       string
	author      string
	isbn        string
	description string
	genre       string
	year        int
	coverURL    string
}

var sampleBooks = []seedBook{
	{
		title:       "The Great Gatsby",
		author:      "F. Scott Fitzgerald",
		isbn:        "9780743273565",
		description: "A portrait of the Jazz Age and the hollow heart of the American dream.",
		genre:       "Classic",
		year:        1925,
		coverURL:    "https://covers.openlibrary.org/b/isbn/9780743273565-L.jpg",
	},
	{
		title:       "1984",
		author:      "George Orwell",
		isbn:        "9780451524935",
		description: "A dystopian novel about surveillance, propaganda and the machinery of totalitarian power.",
		genre:       "Dystopian",
		year:        1949,
		coverURL:    "https://covers.openlibrary.org/b/isbn/9780451524935-L.jpg",
	},
	{
		title:       "To Kill a Mockingbird",
		author:      "Harper Lee",
		isbn:        "9780061120084",
		description: "A story of racial injustice and childhood innocence in the American South.",
		genre:       "Classic",
		year:        1960,
		coverURL:    "https://covers.openlibrary.org/b/isbn/9780061120084-L.jpg",
	},
	{
		title:       "The Hobbit",
		author:      "J.R.R. Tolkien",
		isbn:        "9780547928227",
		description: "Bilbo Baggins is swept into a quest to reclaim the lost Dwarf Kingdom of Erebor.",
		genre:       "Fantasy",
		year:        1937,
		coverURL:    "https://covers.openlibrary.org/b/isbn/9780547928227-L.jpg",
	},
	{
		title:       "Dune",
		author:      "Frank Herbert",
		isbn:        "9780441172719",
		description: "Politics, religion and ecology collide on the desert planet Arrakis.",
		genre:       "Science Fiction",
		year:        1965,
		coverURL:    "https://covers.openlibrary.org/b/isbn/9780441172719-L.jpg",
	},
}

func main() {
	force := flag.Bool("force", false, "seed even if the database already has rows")
	flag.Parse()

	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if !*force {
		var books, users int
		if err := db.QueryRow(`SELECT COUNT(*) FROM books`).Scan(&books); err != nil {
			log.Fatalf("count books: %v", err)
		}
		if err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&users); err != nil {
			log.Fatalf("count users: %v", err)
		}
		if books > 0 || users > 0 {
			log.Printf("database already has %d books and %d users, nothing to do (use -force to seed anyway)", books, users)
			return
		}
	}

	added, err := seedBooks(db)
	if err != nil {
		log.Fatalf("seed books: %v", err)
	}

	if err := seedUser(db, "Demo User", "user@example.com", "password123", "user"); err != nil {
		log.Fatalf("seed demo user: %v", err)
	}
	if err := seedUser(db, "Admin", "admin@example.com", "admin123456", "admin"); err != nil {
		log.Fatalf("seed admin user: %v", err)
	}

	log.Printf("seeded %d books into %s", added, cfg.Path)
	log.Println("demo login:  user@example.com / password123")
	log.Println("admin login: admin@example.com / admin123456")
}

func seedBooks(db *sql.DB) (int, error) {
	added := 0
	for _, b := range sampleBooks {
		var exists int
		err := db.QueryRow(`SELECT COUNT(*) FROM books WHERE isbn = ?`, b.isbn).Scan(&exists)
		if err != nil {
			return added, fmt.Errorf("check isbn %s: %w", b.isbn, err)
		}
		if exists > 0 {
			continue
		}

		_, err = db.Exec(`
			INSERT INTO books (id, title, author, isbn, description, genre, published_year, cover_url, available)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			uuid.NewString(), b.title, b.author, b.isbn, b.description, b.genre, b.year, b.coverURL,
		)
		if err != nil {
			return added, fmt.Errorf("insert %q: %w", b.title, err)
		}
		added++
	}
	return added, nil
}

func seedUser(db *sql.DB, name, email, password, role string) error {
	var exists int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users WHERE LOWER(email) = LOWER(?)`, email).Scan(&exists); err != nil {
		return fmt.Errorf("check email %s: %w", email, err)
	}
	if exists > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO users (id, name, email, password_hash, role, token_version)
		VALUES (?, ?, ?, ?, ?, 0)`,
		uuid.NewString(), name, email, string(hash), role,
	)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", email, err)
	}
	return nil
}
