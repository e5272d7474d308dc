package api

import (
	"net/http"
	"testing"

	"agriapp/internal/user"
)

func TestCreateUser_AdminOnly(t *testing.T) {
	s := newTestServer(t)
	_, userTok := s.signup(t, "amara")
	_, adminTok := s.signupAdmin(t, "root")
	body := map[string]any{
		"username": "kofi", "email": "k@x.com", "password": "pw",
		"role": "admin", "badges": []string{"pioneer"},
	}

	expectStatus(t, s.do("POST", "/users", body, ""), http.StatusUnauthorized)
	expectStatus(t, s.do("POST", "/users", body, userTok), http.StatusForbidden)

	w := s.do("POST", "/users", body, adminTok)
	expectStatus(t, w, http.StatusCreated)
	u := decode[user.User](t, w)
	if u.Role != user.RoleAdmin || !u.HasBadge("pioneer") {
		t.Errorf("admin create should keep role and badges, got %+v", u)
	}

	expectStatus(t, s.do("POST", "/users", body, adminTok), http.StatusBadRequest)
}

func TestLookups(t *testing.T) {
	s := newTestServer(t)
	id, _ := s.signup(t, "amara")

	for _, path := range []string{"/users/" + id, "/users/username/amara", "/users/email/amara@farm.org"} {
		w := s.do("GET", path, nil, "")
		expectStatus(t, w, http.StatusOK)
		if got := decode[user.User](t, w); got.ID != id {
			t.Errorf("GET %s returned %s", path, got.ID)
		}
	}
	for _, path := range []string{"/users/nope", "/users/username/nope", "/users/email/nope@x.com"} {
		expectStatus(t, s.do("GET", path, nil, ""), http.StatusNotFound)
	}
}

func TestListUsers(t *testing.T) {
	s := newTestServer(t)
	for _, name := range []string{"alpha", "bravo", "charlie"} {
		s.signup(t, name)
	}

	w := s.do("GET", "/users?limit=2", nil, "")
	expectStatus(t, w, http.StatusOK)
	if page := decode[[]user.User](t, w); len(page) != 2 || page[0].Username != "alpha" {
		t.Errorf("unexpected first page %+v", page)
	}

	w = s.do("GET", "/users?offset=2&limit=2", nil, "")
	expectStatus(t, w, http.StatusOK)
	if page := decode[[]user.User](t, w); len(page) != 1 || page[0].Username != "charlie" {
		t.Errorf("unexpected second page %+v", page)
	}

	expectStatus(t, s.do("GET", "/users?limit=-1", nil, ""), http.StatusBadRequest)
	expectStatus(t, s.do("GET", "/users?offset=abc", nil, ""), http.StatusBadRequest)
}

func TestUpdateUser_SelfOrAdmin(t *testing.T) {
	s := newTestServer(t)
	amaraID, amaraTok := s.signup(t, "amara")
	_, kofiTok := s.signup(t, "kofi")
	_, adminTok := s.signupAdmin(t, "root")

	update := map[string]any{"username": "amara", "email": "amara@coop.org", "location": "Kano"}

	expectStatus(t, s.do("PUT", "/users/"+amaraID, update, ""), http.StatusUnauthorized)
	expectStatus(t, s.do("PUT", "/users/"+amaraID, update, kofiTok), http.StatusForbidden)

	w := s.do("PUT", "/users/"+amaraID, update, amaraTok)
	expectStatus(t, w, http.StatusOK)
	if u := decode[user.User](t, w); u.Email != "amara@coop.org" || u.Location != "Kano" {
		t.Errorf("update not applied: %+v", u)
	}

	promote := map[string]any{"username": "amara", "email": "amara@coop.org", "role": "admin"}
	expectStatus(t, s.do("PUT", "/users/"+amaraID, promote, amaraTok), http.StatusForbidden)
	w = s.do("PUT", "/users/"+amaraID, promote, adminTok)
	expectStatus(t, w, http.StatusOK)
	if u := decode[user.User](t, w); u.Role != user.RoleAdmin {
		t.Errorf("admin should be able to change roles, got %q", u.Role)
	}

	clash := map[string]any{"username": "kofi", "email": "amara@coop.org"}
	expectStatus(t, s.do("PUT", "/users/"+amaraID, clash, amaraTok), http.StatusBadRequest)

	expectStatus(t, s.do("PUT", "/users/missing", map[string]any{"username": "ghost", "email": "g@x.com"}, adminTok), http.StatusNotFound)
}

func TestDeleteUser_SelfOrAdmin(t *testing.T) {
	s := newTestServer(t)
	amaraID, amaraTok := s.signup(t, "amara")
	kofiID, kofiTok := s.signup(t, "kofi")
	_, adminTok := s.signupAdmin(t, "root")

	expectStatus(t, s.do("DELETE", "/users/"+amaraID, nil, kofiTok), http.StatusForbidden)
	expectStatus(t, s.do("DELETE", "/users/"+amaraID, nil, amaraTok), http.StatusNoContent)
	expectStatus(t, s.do("GET", "/users/"+amaraID, nil, ""), http.StatusNotFound)
	expectStatus(t, s.do("GET", "/users/me", nil, amaraTok), http.StatusUnauthorized)

	expectStatus(t, s.do("DELETE", "/users/"+kofiID, nil, adminTok), http.StatusNoContent)
	expectStatus(t, s.do("DELETE", "/users/"+kofiID, nil, adminTok), http.StatusNoContent)
}

func TestBadges(t *testing.T) {
	s := newTestServer(t)
	id, userTok := s.signup(t, "amara")
	_, adminTok := s.signupAdmin(t, "root")

	expectStatus(t, s.do("PUT", "/users/"+id+"/badges/pioneer", nil, userTok), http.StatusForbidden)
	expectStatus(t, s.do("PUT", "/users/"+id+"/badges/pioneer", nil, adminTok), http.StatusOK)
	w := s.do("PUT", "/users/"+id+"/badges/pioneer", nil, adminTok)
	expectStatus(t, w, http.StatusOK)
	if u := decode[user.User](t, w); len(u.Badges) != 1 || u.Badges[0] != "pioneer" {
		t.Errorf("badge must be stored once, got %v", u.Badges)
	}
	expectStatus(t, s.do("PUT", "/users/missing/badges/pioneer", nil, adminTok), http.StatusNotFound)

	w = s.do("DELETE", "/users/"+id+"/badges/pioneer", nil, adminTok)
	expectStatus(t, w, http.StatusOK)
	if u := decode[user.User](t, w); len(u.Badges) != 0 {
		t.Errorf("badge not removed: %v", u.Badges)
	}
}

func TestFollowGraph(t *testing.T) {
	s := newTestServer(t)
	amaraID, amaraTok := s.signup(t, "amara")
	kofiID, kofiTok := s.signup(t, "kofi")

	expectStatus(t, s.do("PUT", "/users/"+amaraID+"/follow/"+kofiID, nil, kofiTok), http.StatusForbidden)
	expectStatus(t, s.do("PUT", "/users/"+amaraID+"/follow/"+kofiID, nil, amaraTok), http.StatusOK)
	expectStatus(t, s.do("PUT", "/users/"+amaraID+"/follow/"+kofiID, nil, amaraTok), http.StatusOK)
	expectStatus(t, s.do("PUT", "/users/"+amaraID+"/follow/"+amaraID, nil, amaraTok), http.StatusUnprocessableEntity)
	expectStatus(t, s.do("PUT", "/users/"+amaraID+"/follow/missing", nil, amaraTok), http.StatusNotFound)

	w := s.do("GET", "/users/"+kofiID+"/followers", nil, "")
	expectStatus(t, w, http.StatusOK)
	if list := decode[[]user.User](t, w); len(list) != 1 || list[0].ID != amaraID {
		t.Errorf("unexpected followers %+v", list)
	}
	w = s.do("GET", "/users/"+amaraID+"/following", nil, "")
	expectStatus(t, w, http.StatusOK)
	if list := decode[[]user.User](t, w); len(list) != 1 || list[0].ID != kofiID {
		t.Errorf("unexpected following %+v", list)
	}
	w = s.do("GET", "/users/"+amaraID, nil, "")
	if u := decode[user.User](t, w); !u.IsFollowing(kofiID) {
		t.Errorf("user record should list the followee, got %v", u.Following)
	}

	expectStatus(t, s.do("PUT", "/users/"+amaraID+"/unfollow/"+kofiID, nil, amaraTok), http.StatusOK)
	expectStatus(t, s.do("PUT", "/users/"+amaraID+"/unfollow/"+kofiID, nil, amaraTok), http.StatusOK)
	w = s.do("GET", "/users/"+kofiID+"/followers", nil, "")
	if list := decode[[]user.User](t, w); len(list) != 0 {
		t.Errorf("expected no followers after unfollow, got %+v", list)
	}
	expectStatus(t, s.do("GET", "/users/missing/followers", nil, ""), http.StatusNotFound)
}
