package handlers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/vidtube/backend/internal/models"
)

func (s *testServer) seedVideo(owner models.Account, id string, published bool) models.Video {
	video := models.Video{
		ID:          id,
		OwnerID:     owner.ID,
		VideoFile:   "https://cdn.test/videos/" + id,
		Thumbnail:   "https://cdn.test/images/" + id,
		Title:       "Original title",
		Description: "Original description",
		IsPublished: published,
		CreatedAt:   time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC),
	}
	s.videos.byID[id] = video
	return video
}

const videoID = "6f1c7c9e-1111-4a2b-9c3d-000000000001"

func TestPublishRequiresFiles(t *testing.T) {
	srv := newTestServer(t)
	_, token := srv.seedAccount(t, "alice", "supersafe1")

	req := multipartRequest(t, http.MethodPost, "/api/v1/videos",
		map[string]string{"title": "Clip", "description": "desc"},
		map[string]string{"videoFile": "clip.mp4"})
	env := decodeEnvelope(t, srv.do(req, token), http.StatusBadRequest, nil)
	if env.Message != "thumbnail file is required" {
		t.Fatalf("unexpected message %q", env.Message)
	}
	if len(srv.cleaner.released) != 1 {
		t.Fatalf("expected the uploaded video to be released, got %v", srv.cleaner.released)
	}
}

func TestPublishReportsUpstreamFailure(t *testing.T) {
	srv := newTestServer(t)
	_, token := srv.seedAccount(t, "alice", "supersafe1")
	srv.media.err = errors.New("bucket unavailable")

	req := multipartRequest(t, http.MethodPost, "/api/v1/videos",
		map[string]string{"title": "Clip", "description": "desc"},
		map[string]string{"videoFile": "clip.mp4", "thumbnail": "thumb.png"})
	env := decodeEnvelope(t, srv.do(req, token), http.StatusBadGateway, nil)
	if env.Message != "failed to upload videoFile" {
		t.Fatalf("unexpected message %q", env.Message)
	}
	if len(srv.videos.byID) != 0 {
		t.Fatal("expected no video row")
	}
}

func TestGetVideoHidesUnpublishedFromOthers(t *testing.T) {
	srv := newTestServer(t)
	owner, ownerToken := srv.seedAccount(t, "alice", "supersafe1")
	_, otherToken := srv.seedAccount(t, "bob", "supersafe1")
	srv.seedVideo(owner, videoID, false)

	env := decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodGet, "/api/v1/videos/"+videoID, nil), otherToken), http.StatusNotFound, nil)
	if env.Message != errVideoNotFound.Message {
		t.Fatalf("unexpected message %q", env.Message)
	}

	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodGet, "/api/v1/videos/"+videoID, nil), ownerToken), http.StatusOK, nil)
}

func TestMalformedPathIDIsValidationError(t *testing.T) {
	srv := newTestServer(t)
	_, token := srv.seedAccount(t, "alice", "supersafe1")

	for _, target := range []string{"/api/v1/videos/not-a-uuid", "/api/v1/likes/toggle/c/42"} {
		method := http.MethodGet
		if target != "/api/v1/videos/not-a-uuid" {
			method = http.MethodPost
		}
		env := decodeEnvelope(t, srv.do(jsonRequest(t, method, target, nil), token), http.StatusBadRequest, nil)
		if env.Success {
			t.Fatalf("%s: expected failure", target)
		}
	}
}

func TestUpdateVideo(t *testing.T) {
	srv := newTestServer(t)
	owner, token := srv.seedAccount(t, "alice", "supersafe1")
	original := srv.seedVideo(owner, videoID, true)

	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPatch, "/api/v1/videos/"+videoID, map[string]string{}), token), http.StatusBadRequest, nil)

	var updated models.Video
	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPatch, "/api/v1/videos/"+videoID, map[string]string{"title": "  New title "}), token), http.StatusOK, &updated)
	if updated.Title != "New title" || updated.Description != original.Description {
		t.Fatalf("unexpected update %+v", updated)
	}
	if len(srv.cleaner.released) != 0 {
		t.Fatalf("nothing should be released yet, got %v", srv.cleaner.released)
	}

	req := multipartRequest(t, http.MethodPatch, "/api/v1/videos/"+videoID, nil, map[string]string{"thumbnail": "new.png"})
	decodeEnvelope(t, srv.do(req, token), http.StatusOK, &updated)
	if updated.Thumbnail == original.Thumbnail {
		t.Fatal("expected thumbnail to change")
	}
	if len(srv.cleaner.released) != 1 || srv.cleaner.released[0] != original.Thumbnail {
		t.Fatalf("expected old thumbnail release, got %v", srv.cleaner.released)
	}
}

func TestOwnerConditionalVideoWrites(t *testing.T) {
	srv := newTestServer(t)
	owner, ownerToken := srv.seedAccount(t, "alice", "supersafe1")
	_, otherToken := srv.seedAccount(t, "bob", "supersafe1")
	video := srv.seedVideo(owner, videoID, true)

	for _, req := range []*http.Request{
		jsonRequest(t, http.MethodDelete, "/api/v1/videos/"+videoID, nil),
		jsonRequest(t, http.MethodPatch, "/api/v1/videos/toggle/publish/"+videoID, nil),
		jsonRequest(t, http.MethodPatch, "/api/v1/videos/"+videoID, map[string]string{"title": "hijacked"}),
	} {
		env := decodeEnvelope(t, srv.do(req, otherToken), http.StatusNotFound, nil)
		if env.Message != "video not found or not owned by you" {
			t.Fatalf("%s %s: unexpected message %q", req.Method, req.URL.Path, env.Message)
		}
	}

	var toggled map[string]bool
	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPatch, "/api/v1/videos/toggle/publish/"+videoID, nil), ownerToken), http.StatusOK, &toggled)
	if toggled["isPublished"] {
		t.Fatal("expected video to be unpublished")
	}

	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodDelete, "/api/v1/videos/"+videoID, nil), ownerToken), http.StatusOK, nil)
	if _, ok := srv.videos.byID[videoID]; ok {
		t.Fatal("expected video to be deleted")
	}
	if len(srv.cleaner.released) != 2 || srv.cleaner.released[0] != video.VideoFile || srv.cleaner.released[1] != video.Thumbnail {
		t.Fatalf("expected media release, got %v", srv.cleaner.released)
	}
}
