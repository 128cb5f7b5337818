package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignExcludesKeyAndSortsParams(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{"timestamp": "100", "folder": "a", "api_key": "key", "empty": ""})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=a&timestamp=100secret")))
	if got != want {
		t.Fatalf("sign = %s, want %s", got, want)
	}
}

func TestArchiveUploadsRawFile(t *testing.T) {
	var (
		gotPath, gotFolder, gotSig, gotName, gotBody string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotFolder = r.FormValue("folder")
		gotSig = r.FormValue("signature")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(b)
		_, _ = w.Write([]byte(`{"public_id":"rosters/roster","secure_url":"https://res.example/roster.csv","resource_type":"raw"}`))
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "rollcall/rosters")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	url, err := c.Archive(context.Background(), "roster.csv", []byte("id_num\n1\n"))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if url != "https://res.example/roster.csv" {
		t.Fatalf("unexpected url %q", url)
	}
	if gotPath != "/demo/raw/upload" || gotFolder != "rollcall/rosters" || gotName != "roster.csv" || gotBody != "id_num\n1\n" {
		t.Fatalf("unexpected request: %s %s %s %q", gotPath, gotFolder, gotName, gotBody)
	}
	wantSig := c.sign(map[string]string{
		"timestamp":       "1700000000",
		"folder":          "rollcall/rosters",
		"use_filename":    "true",
		"unique_filename": "true",
	})
	if gotSig != wantSig {
		t.Fatalf("signature %s, want %s", gotSig, wantSig)
	}
}

func TestArchiveReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	if _, err := c.Archive(context.Background(), "roster.csv", []byte("x")); err == nil {
		t.Fatal("expected error on 401")
	}
}
