package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/center"
	"github.com/trezcool/kidcare/core/schedule"
	"github.com/trezcool/kidcare/core/seo"
	"github.com/trezcool/kidcare/core/therapist"
	"github.com/trezcool/kidcare/core/user"
	dummydb "github.com/trezcool/kidcare/storage/database/dummy"
	testutil "github.com/trezcool/kidcare/tests"
)

type cliEnv struct {
	cli        *commandLine
	out        *bytes.Buffer
	users      user.Repository
	centers    center.Repository
	therapists therapist.Repository
	schedules  schedule.Repository
	pings      *int32
}

func setup(t *testing.T) cliEnv {
	var pings int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&pings, 1)
		if r.URL.Query().Get("sitemap") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	conf := testutil.NewConfig()
	conf.SEO.IndexNowKey = ""
	conf.SEO.PingEndpoints = []string{srv.URL + "/ping"}
	logger := testutil.NewLogger(conf)
	validate, _ := testutil.NewValidator()
	user.LoadCommonPasswords(logger)

	db, err := dummydb.Open()
	require.NoError(t, err)
	env := cliEnv{
		out:        new(bytes.Buffer),
		users:      dummydb.NewUserRepository(db),
		centers:    dummydb.NewCenterRepository(db),
		therapists: dummydb.NewTherapistRepository(db),
		schedules:  dummydb.NewScheduleRepository(db),
		pings:      &pings,
	}
	children := dummydb.NewChildRepository(db)
	env.cli = &commandLine{
		out:        env.out,
		validate:   validate,
		usrRepo:    env.users,
		centers:    center.NewService(env.centers, conf),
		therapists: therapist.NewService(env.therapists),
		schedules:  schedule.NewService(env.schedules, children, env.therapists),
		pinger:     seo.NewPinger(conf, srv.Client(), logger),
	}
	return env
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func run(env cliEnv, args ...string) error {
	return env.cli.run(append([]string{"admin"}, args...))
}

func Test_commandLine_usage(t *testing.T) {
	env := setup(t)

	assert.Equal(t, errHelp, run(env))
	assert.Equal(t, errHelp, run(env, "lol"))
	assert.Contains(t, env.out.String(), "createcenter -name NAME")
	assert.Equal(t, errHelp, run(env, "adduser", "-h"))
}

func Test_commandLine_migrate(t *testing.T) {
	env := setup(t)

	orig := migrateFunc
	t.Cleanup(func() { migrateFunc = orig })
	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []struct {
		name       string
		args       []string
		wantErr    error
		wantErrStr string
	}{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(env, tt.args...)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_createCenter(t *testing.T) {
	env := setup(t)
	testutil.CreateCenter(t, env.centers, "taken", "Taken", "", true)

	assert.Equal(t, errHelp, run(env, "createcenter"))

	err := run(env, "createcenter", "-name", "Other", "-slug", "taken")
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, center.ErrSlugExists, verr.Err)

	require.NoError(t, run(env, "createcenter", "-name", "Happy Kids", "-domain", "WWW.HappyKids.test"))
	assert.Contains(t, env.out.String(), `center "happy-kids" created`)

	c, err := env.centers.GetCenter(context.Background(), center.GetFilter{Slug: "happy-kids"})
	require.NoError(t, err)
	assert.Equal(t, "Happy Kids", c.Name)
	assert.Equal(t, "happykids.test", c.CustomDomain)
	assert.True(t, c.IsActive)
}

func Test_commandLine_addUser(t *testing.T) {
	env := setup(t)
	c := testutil.CreateCenter(t, env.centers, "sunny", "Sunny", "", true)
	existing := testutil.CreateUser(t, env.users, "", "Old", "oldone", "old@mail.test", "", []string{user.RoleParent}, false)
	ctx := context.Background()

	t.Run("missing username and email", func(t *testing.T) {
		mockPassword(t, testutil.Password)
		assert.Equal(t, errHelp, run(env, "adduser", "-name", "Nobody"))
	})

	t.Run("empty password", func(t *testing.T) {
		mockPassword(t, "")
		assert.Equal(t, errHelp, run(env, "adduser", "-username", "newbie"))
	})

	t.Run("unknown center", func(t *testing.T) {
		mockPassword(t, testutil.Password)
		assert.Equal(t, center.ErrNotFound, run(env, "adduser", "-username", "newbie", "-center", "lol"))
	})

	t.Run("invalid role", func(t *testing.T) {
		mockPassword(t, testutil.Password)
		assert.Equal(t, errInvalidRole, run(env, "adduser", "-username", "newbie", "-role", "king:"))
		assert.Equal(t, errSuperInCenter, run(env, "adduser", "-username", "newbie", "-center", "sunny", "-role", user.RoleSuper))
		assert.Equal(t, user.ErrCenterRequired, run(env, "adduser", "-username", "newbie", "-role", user.RoleAdminOwner))
	})

	t.Run("weak password", func(t *testing.T) {
		mockPassword(t, "12345678")
		assert.Error(t, run(env, "adduser", "-username", "newbie"))
		_, err := env.users.GetUser(ctx, user.GetFilter{Username: "newbie"})
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("create super", func(t *testing.T) {
		mockPassword(t, testutil.Password)
		require.NoError(t, run(env, "adduser", "-username", "Operator", "-email", "ops@kidcare.test"))

		usr, err := env.users.GetUser(ctx, user.GetFilter{Username: "operator"})
		require.NoError(t, err)
		assert.Empty(t, usr.CenterID)
		assert.Equal(t, []string{user.RoleSuper}, usr.Roles)
		assert.Equal(t, "operator", usr.Name)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword(testutil.Password))
	})

	t.Run("create center owner", func(t *testing.T) {
		mockPassword(t, testutil.Password)
		require.NoError(t, run(env, "adduser", "-email", "boss@sunny.test", "-center", "sunny", "-name", "Boss"))

		usr, err := env.users.GetUser(ctx, user.GetFilter{Email: "boss@sunny.test"})
		require.NoError(t, err)
		assert.Equal(t, c.ID, usr.CenterID)
		assert.Equal(t, []string{user.RoleAdminOwner}, usr.Roles)
		assert.Equal(t, "Boss", usr.Name)
	})

	t.Run("update existing", func(t *testing.T) {
		mockPassword(t, "An0ther#Pass")
		require.NoError(t, run(env, "adduser", "-email", existing.Email, "-center", "sunny", "-role", user.RoleTherapist))
		assert.Contains(t, env.out.String(), `user "oldone" updated`)

		usr, err := env.users.GetUser(ctx, user.GetFilter{ID: existing.ID})
		require.NoError(t, err)
		assert.True(t, usr.IsActive)
		assert.Equal(t, c.ID, usr.CenterID)
		assert.Equal(t, []string{user.RoleTherapist}, usr.Roles)
		assert.Equal(t, "Old", usr.Name)
		assert.NoError(t, usr.CheckPassword("An0ther#Pass"))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.users, "", "User", "awesome", "awe@test.cd", testutil.Password, nil, true)

	tests := []struct {
		name    string
		args    []string
		pwd     string
		wantErr error
	}{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, pwd: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", "AWE@test.cd"}, pwd: "lmao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			err := run(env, tt.args...)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			refreshed, err := env.users.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword(tt.pwd))
		})
	}
}

func Test_commandLine_completeSchedules(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	sunny := testutil.CreateCenter(t, env.centers, "sunny", "Sunny", "", true)
	rainbow := testutil.CreateCenter(t, env.centers, "rainbow", "Rainbow", "", true)

	past := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Hour)
	for i, c := range []center.Center{sunny, sunny, rainbow} {
		th := testutil.CreateTherapist(t, env.therapists, c.ID, fmt.Sprintf("Dr. %d", i), true)
		_, err := env.schedules.CreateSchedule(ctx, schedule.Schedule{
			CenterID:    c.ID,
			ChildID:     "child",
			TherapistID: th.ID,
			StartsAt:    past,
			EndsAt:      past.Add(time.Hour),
			Status:      schedule.StatusScheduled,
			CreatedAt:   past,
			UpdatedAt:   past,
		})
		require.NoError(t, err)
	}

	assert.Equal(t, center.ErrNotFound, run(env, "completeschedules", "-center", "lol"))

	require.NoError(t, run(env, "completeschedules", "-center", "sunny"))
	assert.Contains(t, env.out.String(), "2 session(s) completed")

	env.out.Reset()
	require.NoError(t, run(env, "completeschedules"))
	assert.Contains(t, env.out.String(), "1 session(s) completed")
}

func Test_commandLine_pingIndex(t *testing.T) {
	env := setup(t)
	c := testutil.CreateCenter(t, env.centers, "sunny", "Sunny", "", true)
	testutil.CreateTherapist(t, env.therapists, c.ID, "Dr. Kim", true)

	assert.Equal(t, errHelp, run(env, "pingindex"))
	assert.Equal(t, center.ErrNotFound, run(env, "pingindex", "-center", "lol"))

	require.NoError(t, run(env, "pingindex", "-center", "sunny"))
	assert.Contains(t, env.out.String(), ": ok (200)")
	assert.Equal(t, int32(1), atomic.LoadInt32(env.pings))
}
