package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/kidcare/apps/api/echo"
	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/assessment"
	"github.com/trezcool/kidcare/core/blog"
	"github.com/trezcool/kidcare/core/center"
	"github.com/trezcool/kidcare/core/child"
	"github.com/trezcool/kidcare/core/counseling"
	"github.com/trezcool/kidcare/core/payment"
	"github.com/trezcool/kidcare/core/push"
	"github.com/trezcool/kidcare/core/schedule"
	"github.com/trezcool/kidcare/core/seo"
	"github.com/trezcool/kidcare/core/therapist"
	"github.com/trezcool/kidcare/core/traffic"
	"github.com/trezcool/kidcare/core/user"
	emailsvc "github.com/trezcool/kidcare/services/email"
	dummydb "github.com/trezcool/kidcare/storage/database/dummy"
	testutil "github.com/trezcool/kidcare/tests"
)

const centerHeader = "X-Center"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app     *echoapi.Server
	conf    *core.Config
	mailSvc *emailsvc.ConsoleServiceMock

	users      user.Repository
	centers    center.Repository
	therapists therapist.Repository
	children   child.Repository
	schedules  schedule.Repository
	payments   payment.Repository
}

// setup returns a Server backed by a fresh in-memory database.
func setup(t *testing.T) *testEnv {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	validate, translator := testutil.NewValidator()
	core.ParseEmailTemplates(conf, logger)

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	env := &testEnv{
		conf:       conf,
		mailSvc:    emailsvc.NewConsoleServiceMock(conf, logger),
		users:      dummydb.NewUserRepository(db),
		centers:    dummydb.NewCenterRepository(db),
		therapists: dummydb.NewTherapistRepository(db),
		children:   dummydb.NewChildRepository(db),
		schedules:  dummydb.NewScheduleRepository(db),
		payments:   dummydb.NewPaymentRepository(db),
	}

	usrSvc := user.NewService(env.users, env.mailSvc, conf)
	env.app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:        conf,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		Users:       usrSvc,
		Centers:     center.NewService(env.centers, conf),
		Therapists:  therapist.NewService(env.therapists),
		Children:    child.NewService(env.children),
		Schedules:   schedule.NewService(env.schedules, env.children, env.therapists),
		Counseling:  counseling.NewService(dummydb.NewCounselingRepository(db), env.children, env.therapists),
		Assessments: assessment.NewService(dummydb.NewAssessmentRepository(db), env.children, env.therapists),
		Payments:    payment.NewService(env.payments, env.children, usrSvc, env.mailSvc, logger),
		Traffic:     traffic.NewService(dummydb.NewVisitRepository(db)),
		Push:        push.NewService(dummydb.NewPushRepository(db)),
		Pinger:      seo.NewPinger(conf, nil, logger),
		Blog:        blog.NewFetcher(conf, nil, logger),
	})
	return env
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	center   string
	host     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// serve runs tt against the Server.
func (env *testEnv) serve(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	if tt.center != "" {
		req.Header.Set(centerHeader, tt.center)
	}
	if tt.host != "" {
		req.Host = tt.host
	}
	env.app.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) getToken(t *testing.T, usr user.User) string {
	claims := echoapi.GetUserClaims(env.conf, usr)
	token, err := echoapi.GenerateToken(env.conf, claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	if _, ok := j2.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// mustServe runs tt, checks the response code & decodes the response body into v.
func (env *testEnv) mustServe(t *testing.T, tt httpTest, v interface{}) {
	t.Helper()
	if tt.wantCode == 0 {
		tt.wantCode = http.StatusOK
	}
	rec := env.serve(tt)
	if rec.Code != tt.wantCode {
		t.Fatalf("%s %s: code = %v; wantCode %v; body %s", tt.method, tt.path, rec.Code, tt.wantCode, rec.Body.String())
	}
	if v != nil {
		unmarshal(t, rec, v)
	}
}

func runTests(t *testing.T, env *testEnv, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantCode == 0 {
				tt.wantCode = http.StatusOK
			}
			checkCodeAndData(t, tt, env.serve(tt))
		})
	}
}
