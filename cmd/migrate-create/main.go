package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

const migrationsDir = "db/migrations"

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <migration_name>", filepath.Base(os.Args[0]))
	}
	name := os.Args[1]
	if !validName(name) {
		log.Fatal("migration name must be lowercase letters, digits and underscores")
	}

	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		log.Fatalf("create migrations dir: %v", err)
	}

	base := time.Now().UTC().Format("20060102150405") + "_" + name
	for _, suffix := range []string{".up.sql", ".down.sql"} {
		path := filepath.Join(migrationsDir, base+suffix)
		if err := createEmpty(path); err != nil {
			log.Fatalf("create migration: %v", err)
		}
		log.Printf("created %s", path)
	}
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

func createEmpty(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, nil, 0o644)
}
