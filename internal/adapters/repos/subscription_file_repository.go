package repos

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

const (
	subscriptionFileSuffix = "_topicos_assinados.txt"
	subscriptionFileMode   = 0o600
)

// FileSubscriptionRepository keeps one text file per identity with a topic per line.
type FileSubscriptionRepository struct {
	directory string
	mutex     sync.Mutex
}

func NewFileSubscriptionRepository(directory string) *FileSubscriptionRepository {
	if directory == "" {
		directory = "."
	}

	return &FileSubscriptionRepository{directory: directory}
}

func (r *FileSubscriptionRepository) Find(_ context.Context, identity string) ([]string, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.read(identity)
}

func (r *FileSubscriptionRepository) Save(_ context.Context, identity, topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	topics, err := r.read(identity)
	if err != nil {
		return err
	}

	if slices.Contains(topics, topic) {
		return nil
	}

	if err := os.MkdirAll(r.directory, 0o750); err != nil {
		return fmt.Errorf("failed to create subscription directory: %w", err)
	}

	file, err := os.OpenFile(r.path(identity), os.O_CREATE|os.O_APPEND|os.O_WRONLY, subscriptionFileMode)
	if err != nil {
		return fmt.Errorf("failed to open subscriptions of %q: %w", identity, err)
	}

	_, writeErr := file.WriteString(topic + "\n")
	closeErr := file.Close()

	if err := errors.Join(writeErr, closeErr); err != nil {
		return fmt.Errorf("failed to save subscription of %q to %q: %w", identity, topic, err)
	}

	return nil
}

func (r *FileSubscriptionRepository) read(identity string) ([]string, error) {
	content, err := os.ReadFile(r.path(identity))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read subscriptions of %q: %w", identity, err)
	}

	topics := make([]string, 0)
	scanner := bufio.NewScanner(bytes.NewReader(content))

	for scanner.Scan() {
		topic := strings.TrimSpace(scanner.Text())
		if topic == "" || slices.Contains(topics, topic) {
			continue
		}

		topics = append(topics, topic)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse subscriptions of %q: %w", identity, err)
	}

	return topics, nil
}

func (r *FileSubscriptionRepository) path(identity string) string {
	return filepath.Join(r.directory, filepath.Base(identity)+subscriptionFileSuffix)
}
