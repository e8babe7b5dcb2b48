package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kidcare/core/assessment"
	"github.com/trezcool/kidcare/core/counseling"
	"github.com/trezcool/kidcare/core/therapist"
)

func Test_therapistApi(t *testing.T) {
	fx := setupCare(t)

	runTests(t, fx.testEnv, []httpTest{
		{name: "parents cannot list", path: "/v1/therapists", token: fx.parentToken, wantCode: http.StatusForbidden},
		{
			name: "therapists cannot create", method: http.MethodPost, path: "/v1/therapists", token: fx.therapistToken,
			body: []byte(`{"name": "Dr. Lee"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "name required", method: http.MethodPost, path: "/v1/therapists", token: fx.adminToken,
			body: []byte(`{"title": "OT"}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "this field is required"}`),
		},
		{
			name: "other center's therapist", path: "/v1/therapists/" + fx.therapistID, token: fx.otherCenterTkn,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "therapist not found"}),
		},
	})

	t.Run("create & list", func(t *testing.T) {
		var th therapist.Therapist
		body := []byte(`{"name": " Dr. Lee ", "title": "Speech therapist", "specialties": ["speech", "play"], "is_public": true}`)
		fx.mustServe(t, httpTest{method: http.MethodPost, path: "/v1/therapists", token: fx.adminToken, body: body, wantCode: http.StatusCreated}, &th)
		assert.Equal(t, "Dr. Lee", th.Name)
		assert.Equal(t, []string{"speech", "play"}, th.Specialties)
		assert.True(t, th.IsPublic)
		assert.True(t, th.IsActive)

		var therapists []therapist.Therapist
		fx.mustServe(t, httpTest{path: "/v1/therapists", token: fx.therapistToken}, &therapists)
		assert.Len(t, therapists, 2)

		fx.mustServe(t, httpTest{path: "/v1/therapists", token: fx.otherCenterTkn}, &therapists)
		assert.Empty(t, therapists)
	})
}

func Test_counselingApi(t *testing.T) {
	fx := setupCare(t)

	newLog := func(childID string, shared bool) []byte {
		return []byte(fmt.Sprintf(
			`{"child_id": %q, "therapist_id": %q, "session_date": "2026-03-02T10:00:00Z", "summary": "Worked on turn taking", "shared_with_parent": %v}`,
			childID, fx.therapistID, shared,
		))
	}

	runTests(t, fx.testEnv, []httpTest{
		{
			name: "parents cannot write", method: http.MethodPost, path: "/v1/counseling-logs", token: fx.parentToken,
			body: newLog(fx.kid.ID, true), wantCode: http.StatusForbidden,
		},
		{
			name: "summary required", method: http.MethodPost, path: "/v1/counseling-logs", token: fx.therapistToken,
			body:     []byte(fmt.Sprintf(`{"child_id": %q, "therapist_id": %q, "session_date": "2026-03-02T10:00:00Z"}`, fx.kid.ID, fx.therapistID)),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"summary": "this field is required"}`),
		},
		{
			name: "other center's child", method: http.MethodPost, path: "/v1/counseling-logs", token: fx.therapistToken,
			body: newLog(fx.otherCenterKid.ID, true), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"child_id": "child not found"}`),
		},
	})

	var private, shared counseling.Log
	fx.mustServe(t, httpTest{method: http.MethodPost, path: "/v1/counseling-logs", token: fx.therapistToken, body: newLog(fx.kid.ID, false), wantCode: http.StatusCreated}, &private)
	fx.mustServe(t, httpTest{method: http.MethodPost, path: "/v1/counseling-logs", token: fx.therapistToken, body: newLog(fx.kid.ID, true), wantCode: http.StatusCreated}, &shared)
	assert.Equal(t, "Worked on turn taking", shared.Summary)
	assert.True(t, shared.SharedWithParent)

	runTests(t, fx.testEnv, []httpTest{
		{name: "parent reads shared log", path: "/v1/counseling-logs/" + shared.ID, token: fx.parentToken, wantData: marchallObj(t, shared)},
		{
			name: "parent cannot read private log", path: "/v1/counseling-logs/" + private.ID, token: fx.parentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "counseling log not found"}),
		},
		{name: "other parent", path: "/v1/counseling-logs/" + shared.ID, token: fx.otherParentToken, wantCode: http.StatusNotFound},
		{name: "other center", path: "/v1/counseling-logs/" + shared.ID, token: fx.otherCenterTkn, wantCode: http.StatusNotFound},
	})

	t.Run("lists", func(t *testing.T) {
		var logs []counseling.Log
		fx.mustServe(t, httpTest{path: "/v1/counseling-logs", token: fx.parentToken}, &logs)
		require.Len(t, logs, 1)
		assert.Equal(t, shared.ID, logs[0].ID)

		fx.mustServe(t, httpTest{path: "/v1/counseling-logs", token: fx.otherParentToken}, &logs)
		assert.Empty(t, logs)

		fx.mustServe(t, httpTest{path: "/v1/counseling-logs?child_id=" + fx.kid.ID, token: fx.therapistToken}, &logs)
		assert.Len(t, logs, 2)
	})

	t.Run("share & delete", func(t *testing.T) {
		var updated counseling.Log
		fx.mustServe(t, httpTest{method: http.MethodPut, path: "/v1/counseling-logs/" + private.ID, token: fx.therapistToken, body: []byte(`{"shared_with_parent": true}`)}, &updated)
		assert.True(t, updated.SharedWithParent)
		fx.mustServe(t, httpTest{path: "/v1/counseling-logs/" + private.ID, token: fx.parentToken}, nil)

		fx.mustServe(t, httpTest{method: http.MethodDelete, path: "/v1/counseling-logs/" + private.ID, token: fx.therapistToken, wantCode: http.StatusNoContent}, nil)
		fx.mustServe(t, httpTest{path: "/v1/counseling-logs/" + private.ID, token: fx.therapistToken, wantCode: http.StatusNotFound}, nil)
	})
}

func Test_assessmentApi(t *testing.T) {
	fx := setupCare(t)

	newAssessment := func(area string, score int, at string) []byte {
		return []byte(fmt.Sprintf(
			`{"child_id": %q, "therapist_id": %q, "area": %q, "score": %d, "assessed_at": %q}`,
			fx.kid.ID, fx.therapistID, area, score, at,
		))
	}

	runTests(t, fx.testEnv, []httpTest{
		{
			name: "bad area", method: http.MethodPost, path: "/v1/assessments", token: fx.therapistToken,
			body: newAssessment("flying", 50, "2026-01-10T00:00:00Z"), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"area": "must be one of: gross_motor, fine_motor, language, cognitive, social, self_care"}`),
		},
		{
			name: "score out of range", method: http.MethodPost, path: "/v1/assessments", token: fx.therapistToken,
			body: newAssessment(assessment.AreaLanguage, 120, "2026-01-10T00:00:00Z"), wantCode: http.StatusBadRequest,
		},
		{
			name: "parents cannot assess", method: http.MethodPost, path: "/v1/assessments", token: fx.parentToken,
			body: newAssessment(assessment.AreaLanguage, 50, "2026-01-10T00:00:00Z"), wantCode: http.StatusForbidden,
		},
	})

	var first, second assessment.Assessment
	fx.mustServe(t, httpTest{method: http.MethodPost, path: "/v1/assessments", token: fx.therapistToken, body: newAssessment(" Language ", 40, "2026-01-10T00:00:00Z"), wantCode: http.StatusCreated}, &first)
	fx.mustServe(t, httpTest{method: http.MethodPost, path: "/v1/assessments", token: fx.therapistToken, body: newAssessment(assessment.AreaLanguage, 55, "2026-03-10T00:00:00Z"), wantCode: http.StatusCreated}, &second)
	assert.Equal(t, assessment.AreaLanguage, first.Area)

	t.Run("progress", func(t *testing.T) {
		var progress []assessment.AreaProgress
		fx.mustServe(t, httpTest{path: "/v1/children/" + fx.kid.ID + "/progress", token: fx.parentToken}, &progress)
		require.Len(t, progress, 1)
		assert.Equal(t, assessment.AreaLanguage, progress[0].Area)
		assert.Equal(t, 55, progress[0].Latest)
		require.NotNil(t, progress[0].Previous)
		assert.Equal(t, 40, *progress[0].Previous)
		require.NotNil(t, progress[0].Delta)
		assert.Equal(t, 15, *progress[0].Delta)
		assert.Equal(t, 2, progress[0].Count)

		fx.mustServe(t, httpTest{path: "/v1/children/" + fx.kid.ID + "/progress", token: fx.otherParentToken, wantCode: http.StatusNotFound}, nil)
	})

	t.Run("parent scoping", func(t *testing.T) {
		var assessments []assessment.Assessment
		fx.mustServe(t, httpTest{path: "/v1/assessments", token: fx.parentToken}, &assessments)
		assert.Len(t, assessments, 2)

		fx.mustServe(t, httpTest{path: "/v1/assessments", token: fx.otherParentToken}, &assessments)
		assert.Empty(t, assessments)

		fx.mustServe(t, httpTest{path: "/v1/assessments/" + first.ID, token: fx.otherParentToken, wantCode: http.StatusNotFound}, nil)
	})

	t.Run("update", func(t *testing.T) {
		var updated assessment.Assessment
		fx.mustServe(t, httpTest{method: http.MethodPut, path: "/v1/assessments/" + second.ID, token: fx.therapistToken, body: []byte(`{"score": 70}`)}, &updated)
		assert.Equal(t, 70, updated.Score)
		assert.Equal(t, second.AssessedAt, updated.AssessedAt)
	})
}
