package web

import (
	"net/http"
	"testing"

	"github.com/tyemirov/bunledge/internal/store"
)

func TestHealthEndpoint(t *testing.T) {
	fixture := newAPIFixture(t, StartPolicyConflict)

	recorder := fixture.do(t, http.MethodGet, "/api/health", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var payload struct {
		Status string `json:"status"`
	}
	decodeBody(t, recorder, &payload)
	if payload.Status != "healthy" {
		t.Fatalf("unexpected health payload: %+v", payload)
	}
}

func TestProtectedRoutesRejectAnonymousRequests(t *testing.T) {
	fixture := newAPIFixture(t, StartPolicyConflict)

	for _, path := range []string{"/api/users/me", "/api/activities/progress/me"} {
		recorder := fixture.do(t, http.MethodGet, path, "", nil)
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, recorder.Code)
		}
	}
}

func TestFirstAuthenticatedRequestProvisionsOneUser(t *testing.T) {
	fixture := newAPIFixture(t, StartPolicyConflict)
	token := fixture.mintToken(t, "auth0|newcomer")

	first := fixture.do(t, http.MethodGet, "/api/users/me", token, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d: %s", first.Code, first.Body.String())
	}
	var me store.User
	decodeBody(t, first, &me)
	if me.Subject != "auth0|newcomer" {
		t.Fatalf("unexpected provisioned user: %+v", me)
	}

	second := fixture.do(t, http.MethodGet, "/api/users/me", token, nil)
	if second.Code != http.StatusOK {
		t.Fatalf("second request: expected 200, got %d", second.Code)
	}
	var meAgain store.User
	decodeBody(t, second, &meAgain)
	if meAgain.ID != me.ID {
		t.Fatalf("expected stable user id, got %d then %d", me.ID, meAgain.ID)
	}

	listed := fixture.do(t, http.MethodGet, "/api/users", "", nil)
	var allUsers []store.User
	decodeBody(t, listed, &allUsers)
	if len(allUsers) != 1 {
		t.Fatalf("expected exactly one user row, got %d", len(allUsers))
	}
}

func TestUsersAdminEndpoints(t *testing.T) {
	fixture := newAPIFixture(t, StartPolicyConflict)

	created := fixture.do(t, http.MethodPost, "/api/users", "", map[string]interface{}{
		"auth0_sub": "auth0|admin-created",
		"email":     "created@example.com",
		"name":      "Created",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", created.Code, created.Body.String())
	}
	var user store.User
	decodeBody(t, created, &user)

	duplicate := fixture.do(t, http.MethodPost, "/api/users", "", map[string]interface{}{
		"auth0_sub": "auth0|admin-created",
	})
	if duplicate.Code != http.StatusConflict {
		t.Fatalf("duplicate create: expected 409, got %d", duplicate.Code)
	}

	missingSubject := fixture.do(t, http.MethodPost, "/api/users", "", map[string]interface{}{
		"email": "no-subject@example.com",
	})
	if missingSubject.Code != http.StatusBadRequest {
		t.Fatalf("missing subject: expected 400, got %d", missingSubject.Code)
	}

	updated := fixture.do(t, http.MethodPut, "/api/users/"+itoa(user.ID), "", map[string]interface{}{
		"name": "Renamed",
	})
	if updated.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", updated.Code)
	}
	var renamed store.User
	decodeBody(t, updated, &renamed)
	if renamed.Name == nil || *renamed.Name != "Renamed" {
		t.Fatalf("update not reflected: %+v", renamed)
	}
	if renamed.Email != nil {
		t.Fatalf("absent email must clear the stored value: %+v", renamed)
	}

	badID := fixture.do(t, http.MethodGet, "/api/users/not-a-number", "", nil)
	if badID.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric id: expected 400, got %d", badID.Code)
	}

	deleted := fixture.do(t, http.MethodDelete, "/api/users/"+itoa(user.ID), "", nil)
	if deleted.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", deleted.Code)
	}
	gone := fixture.do(t, http.MethodGet, "/api/users/"+itoa(user.ID), "", nil)
	if gone.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", gone.Code)
	}
}

func TestExerciseEndpoints(t *testing.T) {
	fixture := newAPIFixture(t, StartPolicyConflict)

	created := fixture.do(t, http.MethodPost, "/api/exercises", "", map[string]interface{}{
		"title":       "Counting",
		"description": "Count the apples.",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", created.Code)
	}
	var exercise store.Exercise
	decodeBody(t, created, &exercise)

	incomplete := fixture.do(t, http.MethodPost, "/api/exercises", "", map[string]interface{}{
		"title": "No description",
	})
	if incomplete.Code != http.StatusBadRequest {
		t.Fatalf("incomplete body: expected 400, got %d", incomplete.Code)
	}

	updated := fixture.do(t, http.MethodPut, "/api/exercises/"+itoa(exercise.ID), "", map[string]interface{}{
		"title":       "Counting further",
		"description": "Count the pears.",
	})
	if updated.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", updated.Code)
	}

	listed := fixture.do(t, http.MethodGet, "/api/exercises", "", nil)
	var exercises []store.Exercise
	decodeBody(t, listed, &exercises)
	if len(exercises) != 1 || exercises[0].Title != "Counting further" {
		t.Fatalf("unexpected listing: %+v", exercises)
	}

	deleted := fixture.do(t, http.MethodDelete, "/api/exercises/"+itoa(exercise.ID), "", nil)
	if deleted.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", deleted.Code)
	}
}

func TestAssessmentEndpoints(t *testing.T) {
	fixture := newAPIFixture(t, StartPolicyConflict)

	userResponse := fixture.do(t, http.MethodPost, "/api/users", "", map[string]interface{}{"auth0_sub": "auth0|graded"})
	var user store.User
	decodeBody(t, userResponse, &user)
	exerciseResponse := fixture.do(t, http.MethodPost, "/api/exercises", "", map[string]interface{}{
		"title":       "Counting",
		"description": "Count the apples.",
	})
	var exercise store.Exercise
	decodeBody(t, exerciseResponse, &exercise)

	created := fixture.do(t, http.MethodPost, "/api/assessments", "", map[string]interface{}{
		"score":       85,
		"user_id":     user.ID,
		"exercise_id": exercise.ID,
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", created.Code, created.Body.String())
	}
	var assessment store.Assessment
	decodeBody(t, created, &assessment)

	outOfRange := fixture.do(t, http.MethodPost, "/api/assessments", "", map[string]interface{}{
		"score":       140,
		"user_id":     user.ID,
		"exercise_id": exercise.ID,
	})
	if outOfRange.Code != http.StatusBadRequest {
		t.Fatalf("score over 100: expected 400, got %d", outOfRange.Code)
	}

	zeroScore := fixture.do(t, http.MethodPut, "/api/assessments/"+itoa(assessment.ID), "", map[string]interface{}{
		"score":    0,
		"feedback": "Start over",
	})
	if zeroScore.Code != http.StatusOK {
		t.Fatalf("zero score update: expected 200, got %d: %s", zeroScore.Code, zeroScore.Body.String())
	}

	filtered := fixture.do(t, http.MethodGet, "/api/assessments?user_id="+itoa(user.ID), "", nil)
	var matches []store.Assessment
	decodeBody(t, filtered, &matches)
	if len(matches) != 1 || matches[0].ID != assessment.ID {
		t.Fatalf("unexpected filtered listing: %+v", matches)
	}

	badFilter := fixture.do(t, http.MethodGet, "/api/assessments?user_id=abc", "", nil)
	if badFilter.Code != http.StatusBadRequest {
		t.Fatalf("bad filter: expected 400, got %d", badFilter.Code)
	}
}
