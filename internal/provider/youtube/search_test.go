package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const searchBlob = `{
  "contents": {
    "twoColumnSearchResultsRenderer": {
      "primaryContents": {
        "sectionListRenderer": {
          "contents": [
            {
              "itemSectionRenderer": {
                "contents": [
                  {
                    "videoRenderer": {
                      "videoId": "abc123def45",
                      "title": {"runs": [{"text": "First Result"}]},
                      "thumbnail": {"thumbnails": [{"url": "small.jpg"}, {"url": "large.jpg"}]},
                      "lengthText": {"simpleText": "1:02:03"},
                      "viewCountText": {"simpleText": "1,234 views"},
                      "ownerText": {"runs": [{"text": "Some Channel"}]},
                      "publishedTimeText": {"simpleText": "2 years ago"}
                    }
                  },
                  {
                    "playlistRenderer": {
                      "playlistId": "PL123",
                      "title": {"simpleText": "A Playlist"},
                      "videoCount": "42"
                    }
                  },
                  {
                    "channelRenderer": {
                      "channelId": "UC999",
                      "title": {"simpleText": "A Channel"}
                    }
                  }
                ]
              }
            }
          ]
        }
      }
    }
  }
}`

func TestParseSearchBlob(t *testing.T) {
	result := parseSearchBlob(searchBlob)

	if len(result.Videos) != 1 {
		t.Fatalf("videos = %d, want 1", len(result.Videos))
	}
	v := result.Videos[0]
	if v.VideoID != "abc123def45" {
		t.Errorf("videoId = %q", v.VideoID)
	}
	if v.Title != "First Result" {
		t.Errorf("title = %q", v.Title)
	}
	if v.Thumbnail != "large.jpg" {
		t.Errorf("thumbnail = %q, want the largest variant", v.Thumbnail)
	}
	if v.Seconds != 3723 {
		t.Errorf("seconds = %d, want 3723", v.Seconds)
	}
	if v.AuthorName != "Some Channel" {
		t.Errorf("author = %q", v.AuthorName)
	}

	if len(result.Playlists) != 1 || result.Playlists[0].PlaylistID != "PL123" {
		t.Errorf("playlists = %+v", result.Playlists)
	}
	if len(result.Channels) != 1 || result.Channels[0].ChannelID != "UC999" {
		t.Errorf("channels = %+v", result.Channels)
	}
}

func TestExtractInitialData(t *testing.T) {
	page := `<html><script>var ytInitialData = {"a":1};</script></html>`
	got, err := extractInitialData(page)
	if err != nil {
		t.Fatalf("extractInitialData() error = %v", err)
	}
	if got != `{"a":1}` {
		t.Errorf("blob = %q", got)
	}
}

func TestExtractInitialData_Missing(t *testing.T) {
	if _, err := extractInitialData("<html></html>"); err == nil {
		t.Error("expected error for a page without ytInitialData")
	}
}

func TestTimestampSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"0:45", 45},
		{"3:21", 201},
		{"1:02:03", 3723},
		{"", 0},
		{"bogus", 0},
	}
	for _, tt := range tests {
		if got := timestampSeconds(tt.in); got != tt.want {
			t.Errorf("timestampSeconds(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSearch_ScrapesResultsPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("search_query"); got != "test query" {
			t.Errorf("search_query = %q", got)
		}
		fmt.Fprintf(w, `<html><script>var ytInitialData = %s;</script></html>`, searchBlob)
	}))
	defer srv.Close()

	c := NewClient("http://unused", "test-agent", time.Second)
	c.SearchBase = srv.URL

	result, err := c.Search(context.Background(), "test query")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(result.Videos) != 1 {
		t.Errorf("videos = %d, want 1", len(result.Videos))
	}
}
