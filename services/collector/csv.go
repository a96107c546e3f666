package collector

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"threadsmith-backend/lib/scrapers/threads"
)

var rawHeader = []string{"username", "post_text", "likes", "target"}

// WriteRawCSV writes collected posts to a CSV file, creating parent
// directories as needed.
func WriteRawCSV(path string, posts []threads.Post) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	err = writer.Write(rawHeader)
	if err != nil {
		return err
	}
	for _, p := range posts {
		err := writer.Write([]string{
			p.Username,
			p.Text,
			strconv.FormatInt(p.Likes, 10),
			p.Target,
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadRawCSV reads posts back from a raw CSV. Rows missing a username
// or text are skipped; a missing or malformed likes column defaults to
// zero so hand-edited files still load.
func ReadRawCSV(path string) ([]threads.Post, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv file '%s' is empty", path)
	}

	columns := map[string]int{}
	for i, name := range records[0] {
		columns[name] = i
	}
	usernameCol, ok := columns["username"]
	if !ok {
		return nil, fmt.Errorf("csv file '%s' has no username column", path)
	}
	textCol, ok := columns["post_text"]
	if !ok {
		return nil, fmt.Errorf("csv file '%s' has no post_text column", path)
	}
	likesCol, hasLikes := columns["likes"]
	targetCol, hasTarget := columns["target"]

	var posts []threads.Post
	for _, record := range records[1:] {
		if usernameCol >= len(record) || textCol >= len(record) {
			continue
		}
		post := threads.Post{
			Username: record[usernameCol],
			Text:     record[textCol],
		}
		if post.Username == "" || post.Text == "" {
			continue
		}
		if hasLikes && likesCol < len(record) {
			likes, err := strconv.ParseInt(record[likesCol], 10, 64)
			if err == nil {
				post.Likes = likes
			}
		}
		if hasTarget && targetCol < len(record) {
			post.Target = record[targetCol]
		}
		posts = append(posts, post)
	}
	return posts, nil
}
