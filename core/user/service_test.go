package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/user"
	emailsvc "github.com/trezcool/kidcare/services/email"
	dummydb "github.com/trezcool/kidcare/storage/database/dummy"
	testutil "github.com/trezcool/kidcare/tests"
)

func TestService_PasswordReset(t *testing.T) {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	core.ParseEmailTemplates(conf, logger)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewUserRepository(db)
	svc := user.NewService(repo, mailSvc, conf)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "", "Mom", "mom001", "mom@mail.test", testutil.Password, []string{user.RoleParent}, true)
	testutil.CreateUser(t, repo, "", "Gone", "gone01", "gone@mail.test", testutil.Password, []string{user.RoleParent}, false)

	assert.Equal(t, user.ErrNotFound, svc.RequestPasswordReset(ctx, "nobody@mail.test"))
	assert.Equal(t, user.ErrNotFound, svc.RequestPasswordReset(ctx, "gone@mail.test"))
	assert.Empty(t, mailSvc.SentMessages())

	require.NoError(t, svc.RequestPasswordReset(ctx, " MOM@mail.test "))
	msgs := mailSvc.SentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "password_reset", msgs[0].TemplateName)
	data, ok := msgs[0].TemplateData.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, user.EncodeUID(usr), data["UID"])

	const newPwd = "N3w#Secret!"
	err = svc.ResetPassword(ctx, user.ResetUserPassword{UID: data["UID"], Token: "bad-token-x", Password: newPwd, PasswordConfirm: newPwd})
	require.Error(t, err)
	assert.Equal(t, "invalid token", err.Error())

	err = svc.ResetPassword(ctx, user.ResetUserPassword{UID: "??", Token: data["Token"], Password: newPwd, PasswordConfirm: newPwd})
	require.Error(t, err)

	require.NoError(t, svc.ResetPassword(ctx, user.ResetUserPassword{UID: data["UID"], Token: data["Token"], Password: newPwd, PasswordConfirm: newPwd}))
	updated, err := svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, updated.CheckPassword(newPwd))
	assert.Error(t, updated.CheckPassword(testutil.Password))
}

func TestService_CheckUniqueness(t *testing.T) {
	conf := testutil.NewConfig()
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewUserRepository(db)
	svc := user.NewService(repo, emailsvc.NewConsoleServiceMock(conf, testutil.NewLogger(conf)), conf)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "", "Mom", "mom001", "mom@mail.test", "", []string{user.RoleParent}, true)

	assert.NoError(t, svc.CheckUniqueness(ctx, "dad001", "dad@mail.test"))
	assert.NoError(t, svc.CheckUniqueness(ctx, "mom001", "mom@mail.test", usr))
	assert.Equal(t, user.ErrUsernameExists.Error(), svc.CheckUniqueness(ctx, "mom001", "").Error())
	assert.Equal(t, user.ErrEmailExists.Error(), svc.CheckUniqueness(ctx, "", "mom@mail.test").Error())
}

func TestService_CenterRequired(t *testing.T) {
	conf := testutil.NewConfig()
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewUserRepository(db)
	svc := user.NewService(repo, emailsvc.NewConsoleServiceMock(conf, testutil.NewLogger(conf)), conf)
	ctx := context.Background()

	newUser := func(centerID, uname string, roles ...string) user.NewUser {
		return user.NewUser{CenterID: centerID, Name: uname, Username: uname, Password: testutil.Password, Roles: roles}
	}

	_, err = svc.Create(ctx, newUser("", "owner1", user.RoleAdminOwner))
	assert.True(t, core.IsValidation(err, user.ErrCenterRequired))
	_, err = svc.Create(ctx, newUser("", "noroles"))
	assert.True(t, core.IsValidation(err, user.ErrCenterRequired))
	_, err = repo.GetUser(ctx, user.GetFilter{Username: "owner1"})
	assert.Equal(t, user.ErrNotFound, err)

	super, err := svc.Create(ctx, newUser("", "root01", user.RoleSuper))
	require.NoError(t, err)
	assert.Empty(t, super.CenterID)

	_, err = svc.Update(ctx, super, user.UpdateUser{Name: super.Name, Roles: []string{user.RoleAdmin}})
	assert.True(t, core.IsValidation(err, user.ErrCenterRequired))

	owner, err := svc.Create(ctx, newUser("center-1", "owner2", user.RoleAdminOwner))
	require.NoError(t, err)
	owner, err = svc.Update(ctx, owner, user.UpdateUser{Name: owner.Name, Username: owner.Username, Roles: []string{user.RoleTherapist}})
	require.NoError(t, err)
	assert.Equal(t, []string{user.RoleTherapist}, owner.Roles)
}
