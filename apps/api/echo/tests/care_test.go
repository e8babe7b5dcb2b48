package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/kidcare/apps/api/echo"
	"github.com/trezcool/kidcare/core/child"
	"github.com/trezcool/kidcare/core/payment"
	"github.com/trezcool/kidcare/core/push"
	"github.com/trezcool/kidcare/core/schedule"
	"github.com/trezcool/kidcare/core/user"
	testutil "github.com/trezcool/kidcare/tests"
)

type careFixture struct {
	*testEnv
	adminToken, therapistToken, parentToken, otherParentToken string

	parent          user.User
	kid, otherKid   child.Child
	therapistID     string
	otherCenterKid  child.Child
	otherCenterTkn  string
	otherCenterSlug string
}

func setupCare(t *testing.T) *careFixture {
	env := setup(t)
	sunny := testutil.CreateCenter(t, env.centers, "sunny", "Sunny", "", true)
	rainbow := testutil.CreateCenter(t, env.centers, "rainbow", "Rainbow", "", true)

	admin := testutil.CreateUser(t, env.users, sunny.ID, "Admin", "admin1", "admin@sunny.test", "", []string{user.RoleAdmin}, true)
	staff := testutil.CreateUser(t, env.users, sunny.ID, "Dr. Kim", "drkim1", "kim@sunny.test", "", []string{user.RoleTherapist}, true)
	parent := testutil.CreateUser(t, env.users, sunny.ID, "Mom", "mom001", "mom@mail.test", "", []string{user.RoleParent}, true)
	other := testutil.CreateUser(t, env.users, sunny.ID, "Dad", "dad001", "dad@mail.test", "", []string{user.RoleParent}, true)
	rainbowAdmin := testutil.CreateUser(t, env.users, rainbow.ID, "Boss", "boss01", "boss@rainbow.test", "", []string{user.RoleAdmin}, true)

	bd := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	return &careFixture{
		testEnv:          env,
		adminToken:       env.getToken(t, admin),
		therapistToken:   env.getToken(t, staff),
		parentToken:      env.getToken(t, parent),
		otherParentToken: env.getToken(t, other),
		parent:           parent,
		kid:              testutil.CreateChild(t, env.children, sunny.ID, parent.ID, "Mina", bd),
		otherKid:         testutil.CreateChild(t, env.children, sunny.ID, other.ID, "Joon", bd),
		therapistID:      testutil.CreateTherapist(t, env.therapists, sunny.ID, "Dr. Kim", true).ID,
		otherCenterKid:   testutil.CreateChild(t, env.children, rainbow.ID, "", "Sora", bd),
		otherCenterTkn:   env.getToken(t, rainbowAdmin),
		otherCenterSlug:  rainbow.Slug,
	}
}

func Test_childApi(t *testing.T) {
	fx := setupCare(t)

	runTests(t, fx.testEnv, []httpTest{
		{name: "parents cannot create", method: http.MethodPost, path: "/v1/children", token: fx.parentToken, body: []byte(`{}`), wantCode: http.StatusForbidden},
		{
			name: "future birth date", method: http.MethodPost, path: "/v1/children", token: fx.adminToken,
			body: []byte(`{"name": "Baby", "birth_date": "2999-01-01T00:00:00Z"}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"birth_date": "birth date cannot be in the future"}`),
		},
		{
			name: "bad gender", method: http.MethodPost, path: "/v1/children", token: fx.adminToken,
			body: []byte(`{"name": "Baby", "birth_date": "2021-01-01T00:00:00Z", "gender": "x"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "other parent's child", path: "/v1/children/" + fx.kid.ID, token: fx.otherParentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "child not found"}),
		},
		{
			name: "other center's child", path: "/v1/children/" + fx.otherCenterKid.ID, token: fx.adminToken,
			wantCode: http.StatusNotFound,
		},
		{name: "own child", path: "/v1/children/" + fx.kid.ID, token: fx.parentToken, wantData: marchallObj(t, fx.kid)},
	})

	t.Run("parents only see their children", func(t *testing.T) {
		var kids []child.Child
		fx.mustServe(t, httpTest{path: "/v1/children", token: fx.parentToken}, &kids)
		require.Len(t, kids, 1)
		assert.Equal(t, fx.kid.ID, kids[0].ID)

		fx.mustServe(t, httpTest{path: "/v1/children", token: fx.adminToken}, &kids)
		assert.Len(t, kids, 2)
	})

	t.Run("create", func(t *testing.T) {
		var kid child.Child
		body := fmt.Sprintf(`{"name": " Hana ", "birth_date": "2021-03-04T00:00:00Z", "parent_id": %q}`, fx.parent.ID)
		fx.mustServe(t, httpTest{method: http.MethodPost, path: "/v1/children", token: fx.adminToken, body: []byte(body), wantCode: http.StatusCreated}, &kid)
		assert.Equal(t, "Hana", kid.Name)
		assert.Equal(t, fx.parent.ID, kid.ParentID)
		assert.True(t, kid.IsActive)
	})
}

func Test_scheduleApi(t *testing.T) {
	fx := setupCare(t)
	newSchedule := func(childID, start, end string) []byte {
		return []byte(fmt.Sprintf(`{"child_id": %q, "therapist_id": %q, "starts_at": %q, "ends_at": %q, "room": "A"}`,
			childID, fx.therapistID, start, end))
	}

	var sess schedule.Schedule
	fx.mustServe(t, httpTest{
		method: http.MethodPost, path: "/v1/schedules", token: fx.therapistToken, wantCode: http.StatusCreated,
		body: newSchedule(fx.kid.ID, "2030-01-10T10:00:00Z", "2030-01-10T11:00:00Z"),
	}, &sess)
	assert.Equal(t, schedule.StatusScheduled, sess.Status)

	runTests(t, fx.testEnv, []httpTest{
		{
			name: "overlap", method: http.MethodPost, path: "/v1/schedules", token: fx.therapistToken,
			body: newSchedule(fx.otherKid.ID, "2030-01-10T10:30:00Z", "2030-01-10T11:30:00Z"), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"starts_at": "the therapist already has a session at this time"}`),
		},
		{
			name: "other center's child", method: http.MethodPost, path: "/v1/schedules", token: fx.therapistToken,
			body: newSchedule(fx.otherCenterKid.ID, "2030-01-11T10:00:00Z", "2030-01-11T11:00:00Z"), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"child_id": "child not found"}`),
		},
		{
			name: "parents cannot schedule", method: http.MethodPost, path: "/v1/schedules", token: fx.parentToken,
			body: newSchedule(fx.kid.ID, "2030-01-12T10:00:00Z", "2030-01-12T11:00:00Z"), wantCode: http.StatusForbidden,
		},
		{
			name: "bad status", method: http.MethodPut, path: "/v1/schedules/" + sess.ID + "/status", token: fx.therapistToken,
			body: []byte(`{"status": "done"}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"status": "must be one of: scheduled, completed, cancelled, no_show"}`),
		},
		{name: "not their child's session", path: "/v1/schedules/" + sess.ID, token: fx.otherParentToken, wantCode: http.StatusNotFound},
		{name: "their child's session", path: "/v1/schedules/" + sess.ID, token: fx.parentToken, wantData: marchallObj(t, sess)},
	})

	t.Run("parents only see their children's sessions", func(t *testing.T) {
		fx.mustServe(t, httpTest{
			method: http.MethodPost, path: "/v1/schedules", token: fx.therapistToken, wantCode: http.StatusCreated,
			body: newSchedule(fx.otherKid.ID, "2030-01-10T11:00:00Z", "2030-01-10T12:00:00Z"),
		}, nil)

		var sessions []schedule.Schedule
		fx.mustServe(t, httpTest{path: "/v1/schedules", token: fx.parentToken}, &sessions)
		require.Len(t, sessions, 1)
		assert.Equal(t, sess.ID, sessions[0].ID)

		fx.mustServe(t, httpTest{path: "/v1/schedules", token: fx.otherParentToken}, &sessions)
		require.Len(t, sessions, 1)
		assert.Equal(t, fx.otherKid.ID, sessions[0].ChildID)
	})

	t.Run("set status", func(t *testing.T) {
		var got schedule.Schedule
		fx.mustServe(t, httpTest{
			method: http.MethodPut, path: "/v1/schedules/" + sess.ID + "/status", token: fx.therapistToken,
			body: []byte(`{"status": "Completed"}`),
		}, &got)
		assert.Equal(t, schedule.StatusCompleted, got.Status)
		assert.False(t, got.CompletedAt.IsZero())
	})

	t.Run("auto-complete", func(t *testing.T) {
		fx.mustServe(t, httpTest{
			method: http.MethodPost, path: "/v1/schedules", token: fx.therapistToken, wantCode: http.StatusCreated,
			body: newSchedule(fx.kid.ID, "2020-06-01T10:00:00Z", "2020-06-01T11:00:00Z"),
		}, nil)

		runTests(t, fx.testEnv, []httpTest{
			{name: "admins only", method: http.MethodPost, path: "/v1/schedules/auto-complete", token: fx.therapistToken, wantCode: http.StatusForbidden},
		})
		var res echoapi.AutoCompleteResponse
		fx.mustServe(t, httpTest{method: http.MethodPost, path: "/v1/schedules/auto-complete", token: fx.adminToken}, &res)
		assert.Equal(t, 1, res.Completed)
		fx.mustServe(t, httpTest{method: http.MethodPost, path: "/v1/schedules/auto-complete", token: fx.adminToken}, &res)
		assert.Equal(t, 0, res.Completed)
	})
}

func Test_paymentApi(t *testing.T) {
	fx := setupCare(t)

	var p payment.Payment
	body := fmt.Sprintf(`{"child_id": %q, "amount": "150000", "description": "January sessions"}`, fx.kid.ID)
	fx.mustServe(t, httpTest{method: http.MethodPost, path: "/v1/payments", token: fx.adminToken, body: []byte(body), wantCode: http.StatusCreated}, &p)
	assert.Equal(t, payment.StatusPending, p.Status)
	assert.Equal(t, fx.parent.ID, p.PayerID)
	assert.Equal(t, payment.DefaultCurrency, p.Currency)
	assert.Equal(t, "150000", p.Amount.String())

	stranger := testutil.CreateUser(t, fx.users, fx.otherCenterKid.CenterID, "Stranger", "strang", "stranger@rainbow.test", "", []string{user.RoleParent}, true)
	payerNotFound := []byte(`{"payer_id": "payer not found"}`)

	runTests(t, fx.testEnv, []httpTest{
		{
			name: "payer of another center", method: http.MethodPost, path: "/v1/payments", token: fx.adminToken,
			body:     []byte(fmt.Sprintf(`{"child_id": %q, "payer_id": %q, "amount": "50000"}`, fx.kid.ID, stranger.ID)),
			wantCode: http.StatusBadRequest, wantData: payerNotFound,
		},
		{
			name: "change payer to another center's user", method: http.MethodPut, path: "/v1/payments/" + p.ID, token: fx.adminToken,
			body: []byte(fmt.Sprintf(`{"payer_id": %q}`, stranger.ID)), wantCode: http.StatusBadRequest, wantData: payerNotFound,
		},
		{
			name: "amount must be positive", method: http.MethodPost, path: "/v1/payments", token: fx.adminToken,
			body: []byte(fmt.Sprintf(`{"child_id": %q, "amount": "-1"}`, fx.kid.ID)), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"amount": "amount must be greater than 0"}`),
		},
		{name: "therapists cannot read", path: "/v1/payments", token: fx.therapistToken, wantCode: http.StatusForbidden},
		{
			name: "bad method", method: http.MethodPost, path: "/v1/payments/" + p.ID + "/pay", token: fx.adminToken,
			body: []byte(`{"method": "bitcoin"}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"method": "must be one of: card, cash, transfer, voucher"}`),
		},
		{name: "refund pending", method: http.MethodPost, path: "/v1/payments/" + p.ID + "/refund", token: fx.adminToken, wantCode: http.StatusConflict},
		{name: "other center", path: "/v1/payments/" + p.ID, token: fx.otherCenterTkn, wantCode: http.StatusNotFound},
	})

	t.Run("pay", func(t *testing.T) {
		fx.mailSvc.Reset()
		var paid payment.Payment
		fx.mustServe(t, httpTest{method: http.MethodPost, path: "/v1/payments/" + p.ID + "/pay", token: fx.adminToken, body: []byte(`{"method": "card"}`)}, &paid)
		assert.Equal(t, payment.StatusPaid, paid.Status)
		assert.Equal(t, payment.MethodCard, paid.Method)
		assert.False(t, paid.PaidAt.IsZero())

		msgs := fx.mailSvc.SentMessages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "payment_receipt", msgs[0].TemplateName)
		assert.Equal(t, fx.parent.Email, msgs[0].To[0].Address)
		assert.Contains(t, msgs[0].TextContent, "Sunny")
		assert.Contains(t, msgs[0].TextContent, "Mina")

		runTests(t, fx.testEnv, []httpTest{
			{
				name: "pay twice", method: http.MethodPost, path: "/v1/payments/" + p.ID + "/pay", token: fx.adminToken,
				body: []byte(`{"method": "card"}`), wantCode: http.StatusConflict,
				wantData: []byte(`{"status": "only pending payments can be changed"}`),
			},
			{
				name: "cancel paid", method: http.MethodPost, path: "/v1/payments/" + p.ID + "/cancel", token: fx.adminToken,
				wantCode: http.StatusConflict, wantData: []byte(`{"status": "only pending payments can be cancelled"}`),
			},
		})
	})

	t.Run("parents see their payments", func(t *testing.T) {
		var list []payment.Payment
		fx.mustServe(t, httpTest{path: "/v1/payments", token: fx.parentToken}, &list)
		require.Len(t, list, 1)
		assert.Equal(t, p.ID, list[0].ID)

		fx.mustServe(t, httpTest{path: "/v1/payments", token: fx.otherParentToken}, &list)
		assert.Empty(t, list)
		runTests(t, fx.testEnv, []httpTest{
			{name: "not their payment", path: "/v1/payments/" + p.ID, token: fx.otherParentToken, wantCode: http.StatusNotFound},
		})
	})

	t.Run("refund & summary", func(t *testing.T) {
		var refunded payment.Payment
		fx.mustServe(t, httpTest{method: http.MethodPost, path: "/v1/payments/" + p.ID + "/refund", token: fx.adminToken}, &refunded)
		assert.Equal(t, payment.StatusRefunded, refunded.Status)

		var sum payment.Summary
		fx.mustServe(t, httpTest{path: "/v1/payments/summary", token: fx.adminToken}, &sum)
		assert.Equal(t, 1, sum.RefundedCount)
		assert.Equal(t, 0, sum.PaidCount)
		assert.Equal(t, "150000", sum.Refunded.String())
	})
}

func Test_pushApi(t *testing.T) {
	fx := setupCare(t)
	const endpoint = "https://push.example.com/send/abc"
	sub := []byte(`{"endpoint": "` + endpoint + `", "keys": {"p256dh": "BNc", "auth": "tBH"}}`)

	runTests(t, fx.testEnv, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/push/subscriptions", body: sub, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "keys required", method: http.MethodPost, path: "/v1/push/subscriptions", token: fx.parentToken,
			body: []byte(`{"endpoint": "` + endpoint + `"}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"p256dh": "this field is required", "auth": "this field is required"}`),
		},
	})

	var created push.Subscription
	fx.mustServe(t, httpTest{method: http.MethodPost, path: "/v1/push/subscriptions", token: fx.parentToken, body: sub, wantCode: http.StatusCreated}, &created)
	assert.Equal(t, fx.parent.ID, created.UserID)
	assert.Equal(t, endpoint, created.Endpoint)

	var subs []push.Subscription
	fx.mustServe(t, httpTest{path: "/v1/push/subscriptions", token: fx.parentToken}, &subs)
	assert.Len(t, subs, 1)
	fx.mustServe(t, httpTest{path: "/v1/push/subscriptions", token: fx.otherParentToken}, &subs)
	assert.Empty(t, subs)
	fx.mustServe(t, httpTest{path: "/v1/push/subscriptions/center", token: fx.adminToken}, &subs)
	assert.Len(t, subs, 1)

	del := "/v1/push/subscriptions?endpoint=" + endpoint
	runTests(t, fx.testEnv, []httpTest{
		{name: "endpoint required", method: http.MethodDelete, path: "/v1/push/subscriptions", token: fx.parentToken, wantCode: http.StatusBadRequest},
		{name: "not their subscription", method: http.MethodDelete, path: del, token: fx.otherParentToken, wantCode: http.StatusNotFound},
		{name: "unsubscribe", method: http.MethodDelete, path: del, token: fx.parentToken, wantCode: http.StatusNoContent},
		{
			name: "already unsubscribed", method: http.MethodDelete, path: del, token: fx.parentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "subscription not found"}),
		},
	})
}
