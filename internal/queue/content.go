package queue

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const badgerRefPrefix = "badger:"

// FSContent writes each body as a markdown file inside the day's queue directory.
type FSContent struct {
	root string
}

func NewFSContent(root string) *FSContent {
	return &FSContent{root: root}
}

func (c *FSContent) Put(_ context.Context, day, name, body string) (string, error) {
	dir := filepath.Join(c.root, day)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (c *FSContent) Get(_ context.Context, ref string) (string, error) {
	data, err := os.ReadFile(ref)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *FSContent) Close() error { return nil }

// BadgerContent keeps bodies in a Badger KV store; the index stores "badger:<key>".
type BadgerContent struct {
	db *badger.DB
}

// NewBadgerContent opens (or creates) a Badger directory. Pass "" for an in-memory store.
func NewBadgerContent(path string) (*BadgerContent, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Silence default logger
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerContent{db: db}, nil
}

func (c *BadgerContent) Put(_ context.Context, day, name, body string) (string, error) {
	key := "queue/" + day + "/" + name
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(body))
	})
	if err != nil {
		return "", err
	}
	return badgerRefPrefix + key, nil
}

func (c *BadgerContent) Get(_ context.Context, ref string) (string, error) {
	key, ok := strings.CutPrefix(ref, badgerRefPrefix)
	if !ok {
		return "", fmt.Errorf("not a badger reference: %q", ref)
	}

	var body string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			body = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return body, nil
}

func (c *BadgerContent) Close() error {
	return c.db.Close()
}
