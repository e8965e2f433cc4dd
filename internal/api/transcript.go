package api

import (
	"bufio"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/diogo/chatai/internal/models"
)

// transcriptTimeLayout is how the server stamps info and turn records
const transcriptTimeLayout = "2006-01-02 15:04:05"

// ParseTranscript decodes the JSONL transcript returned by open_chat.
// Malformed lines, meta lines and roles other than user and assistant are
// skipped, and the resulting messages are numbered from zero.
func ParseTranscript(jsonl string) *models.Transcript {
	t := &models.Transcript{Messages: []models.Message{}}

	scanner := bufio.NewScanner(strings.NewReader(jsonl))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !gjson.Valid(line) {
			continue
		}
		rec := gjson.Parse(line)
		if !rec.IsObject() || rec.Get(PathLineType).String() == "meta" {
			continue
		}

		switch {
		case rec.Get(PathInfo).IsObject():
			t.Info = models.ChatInfo{
				ID:        rec.Get(PathInfoID).String(),
				Name:      rec.Get(PathInfoName).String(),
				CreatedAt: rec.Get(PathInfoCreatedAt).String(),
			}
		case rec.Get(PathTurn).IsObject():
			at := parseTranscriptTime(rec.Get(PathTurnCreatedAt).String())
			for _, m := range rec.Get(PathTurnMessages).Array() {
				appendMessage(t, m.Get(PathLineRole).String(), m.Get(PathLineContent).String(), at)
			}
		case rec.Get(PathLineRole).Exists():
			appendMessage(t, rec.Get(PathLineRole).String(), rec.Get(PathLineContent).String(), time.Time{})
		}
	}

	return t
}

func parseTranscriptTime(s string) time.Time {
	at, err := time.Parse(transcriptTimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return at
}

func appendMessage(t *models.Transcript, role, content string, at time.Time) {
	r := models.Role(role)
	if !r.Valid() {
		return
	}
	t.Messages = append(t.Messages, models.Message{
		Role:      r,
		Content:   content,
		Sequence:  len(t.Messages),
		CreatedAt: at,
	})
}
