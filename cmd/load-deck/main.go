package main

import (
	"encoding/csv"
	"flag"
	"log"
	"os"
	"strings"

	"card-clash/internal/config"
	"card-clash/internal/db"
)

type deckRecord struct {
	Kind string
	Text string
}

func main() {
	filePath := flag.String("file", "deck.csv", "path to deck csv (kind,text)")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}

	conn, err := db.Open(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	records, err := readDeck(*filePath)
	if err != nil {
		log.Fatalf("failed to read deck: %v", err)
	}

	inserted := 0
	for _, record := range records {
		entry := db.DeckCard{
			Kind: record.Kind,
			Text: record.Text,
		}
		if err := conn.FirstOrCreate(&entry, db.DeckCard{Kind: entry.Kind, Text: entry.Text}).Error; err != nil {
			log.Fatalf("failed to upsert deck card: %v", err)
		}
		inserted++
	}

	log.Printf("loaded %d deck cards", inserted)
}

func readDeck(path string) ([]deckRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var records []deckRecord
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < 2 {
			continue
		}
		kind := strings.ToLower(strings.TrimSpace(row[0]))
		text := strings.TrimSpace(row[1])
		if text == "" {
			continue
		}
		if kind != "prompt" && kind != "response" {
			continue
		}
		records = append(records, deckRecord{Kind: kind, Text: text})
	}
	return records, nil
}
