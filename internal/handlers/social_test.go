package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/vidtube/backend/internal/repositories"
)

func TestSubscriptionToggle(t *testing.T) {
	srv := newTestServer(t)
	alice, token := srv.seedAccount(t, "alice", "supersafe1")
	bob, _ := srv.seedAccount(t, "bob", "supersafe1")

	env := decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPost, "/api/v1/subscriptions/c/"+alice.ID, nil), token), http.StatusBadRequest, nil)
	if env.Message != errSelfSubscription.Message {
		t.Fatalf("unexpected message %q", env.Message)
	}
	if srv.subscriptions.calls != 0 {
		t.Fatal("self subscription must not reach the store")
	}

	var result map[string]bool
	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPost, "/api/v1/subscriptions/c/"+bob.ID, nil), token), http.StatusOK, &result)
	if !result["isSubscribed"] {
		t.Fatalf("expected subscription, got %v", result)
	}

	srv.subscriptions.err = repositories.ErrNotFound
	env = decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPost, "/api/v1/subscriptions/c/"+bob.ID, nil), token), http.StatusNotFound, nil)
	if env.Message != "channel not found" {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestPlaylistCreate(t *testing.T) {
	srv := newTestServer(t)
	alice, token := srv.seedAccount(t, "alice", "supersafe1")

	duplicate := map[string]any{"name": "Mix", "description": "d", "videos": []string{videoID, videoID}}
	env := decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPost, "/api/v1/playlist", duplicate), token), http.StatusBadRequest, nil)
	if env.Message != "videos must not contain duplicates" {
		t.Fatalf("unexpected message %q", env.Message)
	}

	malformed := map[string]any{"name": "Mix", "description": "d", "videos": []string{"nope"}}
	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPost, "/api/v1/playlist", malformed), token), http.StatusBadRequest, nil)

	valid := map[string]any{"name": " Mix ", "description": "Favourites", "videos": []string{strings.ToUpper(videoID)}}
	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPost, "/api/v1/playlist", valid), token), http.StatusCreated, nil)
	if srv.playlists.created.OwnerID != alice.ID || srv.playlists.created.Name != "Mix" {
		t.Fatalf("unexpected playlist %+v", srv.playlists.created)
	}
	if len(srv.playlists.created.VideoIDs) != 1 || srv.playlists.created.VideoIDs[0] != videoID {
		t.Fatalf("expected normalized video ids, got %v", srv.playlists.created.VideoIDs)
	}

	srv.playlists.err = repositories.ErrNotFound
	env = decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPost, "/api/v1/playlist", valid), token), http.StatusNotFound, nil)
	if env.Message != "video not found" {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestPlaylistMembershipErrors(t *testing.T) {
	srv := newTestServer(t)
	_, token := srv.seedAccount(t, "alice", "supersafe1")
	const playlistID = "9a0e2f1d-2222-4b3c-8d4e-000000000002"

	cases := []struct {
		path    string
		err     error
		status  int
		message string
	}{
		{"/api/v1/playlist/add/" + videoID + "/" + playlistID, repositories.ErrConflict, http.StatusConflict, "video is already in the playlist"},
		{"/api/v1/playlist/add/" + videoID + "/" + playlistID, repositories.ErrNotFound, http.StatusNotFound, "video not found"},
		{"/api/v1/playlist/add/" + videoID + "/" + playlistID, repositories.ErrNotFoundOrUnauthorized, http.StatusNotFound, playlistNotOwned},
		{"/api/v1/playlist/remove/" + videoID + "/" + playlistID, repositories.ErrNotFound, http.StatusNotFound, "video is not in the playlist"},
	}

	for _, tc := range cases {
		srv.playlists.err = tc.err
		env := decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPatch, tc.path, nil), token), tc.status, nil)
		if env.Message != tc.message {
			t.Fatalf("%s with %v: expected %q got %q", tc.path, tc.err, tc.message, env.Message)
		}
	}
}

func TestContentValidation(t *testing.T) {
	srv := newTestServer(t)
	_, token := srv.seedAccount(t, "alice", "supersafe1")

	env := decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPost, "/api/v1/tweets", map[string]string{"content": "   "}), token), http.StatusBadRequest, nil)
	if env.Message != "content is required" {
		t.Fatalf("unexpected message %q", env.Message)
	}

	env = decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPost, "/api/v1/comments/"+videoID, nil), token), http.StatusBadRequest, nil)
	if env.Message != errInvalidBody.Message {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestCommentAndTweetOwnership(t *testing.T) {
	srv := newTestServer(t)
	alice, aliceToken := srv.seedAccount(t, "alice", "supersafe1")
	_, bobToken := srv.seedAccount(t, "bob", "supersafe1")
	srv.seedVideo(alice, videoID, true)

	var comment struct {
		ID      string `json:"id"`
		Content string `json:"content"`
	}
	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPost, "/api/v1/comments/"+videoID, map[string]string{"content": "  first!  "}), bobToken), http.StatusCreated, &comment)
	if comment.Content != "first!" {
		t.Fatalf("expected trimmed content, got %q", comment.Content)
	}

	env := decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPost, "/api/v1/comments/"+strings.Replace(videoID, "1111", "2222", 1), map[string]string{"content": "hi"}), bobToken), http.StatusNotFound, nil)
	if env.Message != "video not found" {
		t.Fatalf("unexpected message %q", env.Message)
	}

	commentPath := "/api/v1/comments/c/" + comment.ID
	env = decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPatch, commentPath, map[string]string{"content": "edited"}), aliceToken), http.StatusNotFound, nil)
	if env.Message != "comment not found or not owned by you" {
		t.Fatalf("unexpected message %q", env.Message)
	}
	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPatch, commentPath, map[string]string{"content": "edited"}), bobToken), http.StatusOK, nil)
	if got := srv.content.contents[comment.ID]; got != "edited" {
		t.Fatalf("expected edited comment, got %q", got)
	}
	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodDelete, commentPath, nil), bobToken), http.StatusOK, nil)
	if _, ok := srv.content.owners[comment.ID]; ok {
		t.Fatal("expected comment to be deleted")
	}

	var tweet struct {
		ID string `json:"id"`
	}
	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodPost, "/api/v1/tweets", map[string]string{"content": "hello"}), aliceToken), http.StatusCreated, &tweet)
	tweetPath := "/api/v1/tweets/" + tweet.ID
	env = decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodDelete, tweetPath, nil), bobToken), http.StatusNotFound, nil)
	if env.Message != "tweet not found or not owned by you" {
		t.Fatalf("unexpected message %q", env.Message)
	}
	decodeEnvelope(t, srv.do(jsonRequest(t, http.MethodDelete, tweetPath, nil), aliceToken), http.StatusOK, nil)
}
