package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

const (
	channelsFile = "channels.json"
	usersFile    = "users.json"
)

// Per-day message files are named 2021-01-31.json; anything else in a
// channel directory is ignored.
var dayFileRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\.json$`)

// ReadChannels parses channels.json from the export root.
func ReadChannels(dir string) ([]RawChannel, error) {
	var channels []RawChannel
	if err := readJSONFile(filepath.Join(dir, channelsFile), &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// ReadUsers parses users.json from the export root.
func ReadUsers(dir string) ([]RawUser, error) {
	var users []RawUser
	if err := readJSONFile(filepath.Join(dir, usersFile), &users); err != nil {
		return nil, err
	}
	return users, nil
}

// MessageFiles lists the per-day message files of a channel directory in
// name order (names are dates, so name order is chronological).
func MessageFiles(dir, channelName string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(dir, channelName))
	if err != nil {
		return nil, fmt.Errorf("read channel dir %s: %w", channelName, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !dayFileRe.MatchString(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, channelName, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// ReadMessages parses one per-day message file.
func ReadMessages(path string) ([]RawMessage, error) {
	var messages []RawMessage
	if err := readJSONFile(path, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func readJSONFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
