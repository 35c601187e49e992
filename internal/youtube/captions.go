package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/phrazzld/blogtube-api/internal/cache"
	"github.com/phrazzld/blogtube-api/internal/lang"
)

// Variant is one caption track of a video.
type Variant struct {
	Code         string `json:"language_code"`
	Name         string `json:"language"`
	Generated    bool   `json:"is_generated"`
	Translatable bool   `json:"is_translatable"`
	BaseURL      string `json:"-"`
}

// Transcript is the text of one caption track.
type Transcript struct {
	Text         string
	LanguageCode string
	Generated    bool
	Translated   bool
}

type captionTrack struct {
	BaseURL string `json:"baseUrl"`
	Name    struct {
		SimpleText string `json:"simpleText"`
		Runs       []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"name"`
	LanguageCode   string `json:"languageCode"`
	Kind           string `json:"kind"`
	IsTranslatable bool   `json:"isTranslatable"`
}

func (t captionTrack) displayName() string {
	if t.Name.SimpleText != "" {
		return t.Name.SimpleText
	}
	var b strings.Builder
	for _, run := range t.Name.Runs {
		b.WriteString(run.Text)
	}
	if b.Len() > 0 {
		return b.String()
	}
	return lang.DisplayName(t.LanguageCode)
}

var (
	captionTracksKey = []byte(`"captionTracks":`)
	playabilityError = []byte(`"playabilityStatus":{"status":"ERROR"`)
)

// ListVariants returns the caption tracks of a video, manually created
// tracks first.
func (c *Client) ListVariants(ctx context.Context, videoID string) ([]Variant, error) {
	if !videoIDPattern.MatchString(videoID) {
		return nil, fmt.Errorf("%w: bad video id %q", ErrInvalidURL, videoID)
	}
	if variants, ok := cache.GetAs[[]Variant](c.cache, variantsKey(videoID)); ok {
		return variants, nil
	}

	query := url.Values{}
	query.Set("v", videoID)
	query.Set("hl", "en")

	resp, err := c.get(ctx, c.watchURL+"?"+query.Encode())
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: watch page status %d", ErrVideoNotFound, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: watch page status %d", ErrTransient, resp.StatusCode)
	}

	page, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	variants, err := parseCaptionTracks(page)
	if err != nil {
		return nil, err
	}

	c.cache.Set(variantsKey(videoID), variants, cache.CategoryContentVariants)
	c.logger.Debug("listed caption tracks", "video_id", videoID, "count", len(variants))
	return variants, nil
}

// parseCaptionTracks extracts the caption track list embedded in the player
// response of a watch page.
func parseCaptionTracks(page []byte) ([]Variant, error) {
	idx := bytes.Index(page, captionTracksKey)
	if idx < 0 {
		if bytes.Contains(page, playabilityError) {
			return nil, ErrVideoNotFound
		}
		return nil, ErrTranscriptUnavailable
	}

	var tracks []captionTrack
	dec := json.NewDecoder(bytes.NewReader(page[idx+len(captionTracksKey):]))
	if err := dec.Decode(&tracks); err != nil {
		return nil, fmt.Errorf("%w: unreadable caption track list: %w", ErrTranscriptUnavailable, err)
	}

	variants := make([]Variant, 0, len(tracks))
	for _, t := range tracks {
		if t.BaseURL == "" || t.LanguageCode == "" {
			continue
		}
		variants = append(variants, Variant{
			Code:         t.LanguageCode,
			Name:         t.displayName(),
			Generated:    t.Kind == "asr",
			Translatable: t.IsTranslatable,
			BaseURL:      t.BaseURL,
		})
	}
	if len(variants) == 0 {
		return nil, ErrTranscriptUnavailable
	}

	sort.SliceStable(variants, func(i, j int) bool {
		return !variants[i].Generated && variants[j].Generated
	})
	return variants, nil
}

// pickVariant chooses the track to download for code. It prefers an exact
// match, then a track of the same base language, then a translatable track
// translated into code, then the first track as-is.
func pickVariant(variants []Variant, code string) (Variant, string, bool) {
	for _, v := range variants {
		if strings.EqualFold(v.Code, code) {
			return v, "", true
		}
	}
	base := lang.Base(code)
	for _, v := range variants {
		if lang.Base(v.Code) == base {
			return v, "", true
		}
	}
	for _, v := range variants {
		if v.Translatable {
			return v, code, true
		}
	}
	if len(variants) > 0 {
		return variants[0], "", true
	}
	return Variant{}, "", false
}

// Fetch downloads the transcript of a video in the language code, falling
// back to a translated or differently-languaged track when needed.
func (c *Client) Fetch(ctx context.Context, videoID, code string) (Transcript, error) {
	variants, err := c.ListVariants(ctx, videoID)
	if err != nil {
		return Transcript{}, err
	}

	variant, translateTo, ok := pickVariant(variants, code)
	if !ok {
		return Transcript{}, ErrTranscriptUnavailable
	}

	target := variant.BaseURL
	if translateTo != "" {
		target += "&tlang=" + url.QueryEscape(translateTo)
	}

	resp, err := c.get(ctx, target)
	if err != nil {
		return Transcript{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return Transcript{}, fmt.Errorf("%w: caption status %d", ErrTranscriptUnavailable, resp.StatusCode)
	default:
		return Transcript{}, fmt.Errorf("%w: caption status %d", ErrTransient, resp.StatusCode)
	}

	body, err := readBody(resp)
	if err != nil {
		return Transcript{}, err
	}

	text, err := parseTimedText(body)
	if err != nil {
		return Transcript{}, err
	}
	if text == "" {
		return Transcript{}, fmt.Errorf("%w: empty caption track", ErrTranscriptUnavailable)
	}

	transcript := Transcript{
		Text:         text,
		LanguageCode: variant.Code,
		Generated:    variant.Generated,
		Translated:   translateTo != "",
	}
	if transcript.Translated {
		transcript.LanguageCode = translateTo
	}

	c.logger.Debug("fetched transcript",
		"video_id", videoID,
		"language", transcript.LanguageCode,
		"translated", transcript.Translated,
		"length", len(text))
	return transcript, nil
}

type timedTextCue struct {
	Text     string   `xml:",chardata"`
	Segments []string `xml:"s"`
}

// timedText covers both caption formats YouTube serves: srv1 with <text>
// cues and srv3 with <body><p> cues.
type timedText struct {
	Texts      []timedTextCue `xml:"text"`
	Paragraphs []timedTextCue `xml:"body>p"`
}

// parseTimedText joins the cues of a caption document into clean text.
func parseTimedText(doc []byte) (string, error) {
	var tt timedText
	if err := xml.Unmarshal(doc, &tt); err != nil {
		return "", fmt.Errorf("%w: unreadable caption document: %w", ErrTranscriptUnavailable, err)
	}

	cues := tt.Texts
	if len(cues) == 0 {
		cues = tt.Paragraphs
	}

	parts := make([]string, 0, len(cues))
	for _, cue := range cues {
		text := cue.Text + strings.Join(cue.Segments, "")
		text = strings.TrimSpace(html.UnescapeString(text))
		if text != "" {
			parts = append(parts, text)
		}
	}
	return CleanTranscript(strings.Join(parts, " ")), nil
}
