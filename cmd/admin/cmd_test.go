package main

import (
	"bytes"
	"errors"
	"testing"

	"dost-pmns-api/models"
	"dost-pmns-api/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withPassword(t *testing.T, pwd string) {
	t.Helper()
	prev := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = prev })
}

func TestCommandLineUsage(t *testing.T) {
	db := testutil.NewDB(t)
	withPassword(t, "")

	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: []string{"admin"}},
		{name: "unknown command", args: []string{"admin", "frobnicate"}},
		{name: "createuser without flags", args: []string{"admin", "createuser"}},
		{name: "createuser bad flag", args: []string{"admin", "createuser", "-nope"}},
		{name: "resetpassword without email", args: []string{"admin", "resetpassword"}},
		{name: "empty password", args: []string{"admin", "resetpassword", "-email", "someone@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cli := &commandLine{db: db, out: &out}
			err := cli.run(tt.args)
			assert.True(t, errors.Is(err, errHelp), "got %v", err)
		})
	}
}

func TestCreateUserCommand(t *testing.T) {
	db := testutil.NewDB(t)
	withPassword(t, "AdminPassword1")
	var out bytes.Buffer
	cli := &commandLine{db: db, out: &out}

	require.NoError(t, cli.run([]string{"admin", "createuser", "-email", "Root@Example.com", "-role", models.RoleSuperAdmin}))
	assert.Contains(t, out.String(), "Created super_admin root@example.com (USR-")

	var user models.User
	require.NoError(t, db.Where("email = ?", "root@example.com").First(&user).Error)
	assert.Equal(t, models.UserStatusActive, user.Status)
	assert.Equal(t, "Admin", user.FirstName)
	assert.True(t, models.CheckPasswordHash("AdminPassword1", user.Password))

	err := cli.run([]string{"admin", "createuser", "-email", "root@example.com", "-role", models.RoleSuperAdmin})
	require.Error(t, err)
	assert.False(t, errors.Is(err, errHelp))

	err = cli.run([]string{"admin", "createuser", "-email", "psto@example.com", "-role", models.RolePSTO})
	require.Error(t, err)

	require.NoError(t, cli.run([]string{"admin", "createuser", "-email", "psto@example.com", "-role", models.RolePSTO,
		"-province", "Romblon", "-first", "Romblon", "-last", "Office"}))
}

func TestResetPasswordCommand(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleDOSTMimaropa, "")
	token := "stale-token"
	require.NoError(t, db.Model(user).Update("reset_password_token", token).Error)

	var out bytes.Buffer
	cli := &commandLine{db: db, out: &out}

	withPassword(t, "short")
	err := cli.run([]string{"admin", "resetpassword", "-email", user.Email})
	require.Error(t, err)

	withPassword(t, "BrandNewPassword9")
	err = cli.run([]string{"admin", "resetpassword", "-email", "missing@example.com"})
	require.EqualError(t, err, "user missing@example.com not found")

	require.NoError(t, cli.run([]string{"admin", "resetpassword", "-email", user.Email}))
	assert.Contains(t, out.String(), "Password updated for "+user.Email)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.True(t, models.CheckPasswordHash("BrandNewPassword9", stored.Password))
	assert.Nil(t, stored.ResetPasswordToken)
}

func TestMigratePasswordsCommand(t *testing.T) {
	db := testutil.NewDB(t)
	legacy := testutil.CreateUser(t, db, models.RoleProponent, "Palawan")
	hashed := testutil.CreateUser(t, db, models.RolePSTO, "Palawan")
	require.NoError(t, db.Model(legacy).UpdateColumn("password", "plain-secret").Error)

	var out bytes.Buffer
	cli := &commandLine{db: db, out: &out}
	require.NoError(t, cli.run([]string{"admin", "migrate-passwords"}))
	assert.Contains(t, out.String(), "Password migration completed: 1 hashed, 0 failed")

	var stored models.User
	require.NoError(t, db.First(&stored, legacy.ID).Error)
	assert.True(t, models.CheckPasswordHash("plain-secret", stored.Password))
	var untouched models.User
	require.NoError(t, db.First(&untouched, hashed.ID).Error)
	assert.True(t, models.CheckPasswordHash(testutil.Password, untouched.Password))
}

func TestSeedAndMigrateCommands(t *testing.T) {
	db := testutil.NewDB(t)
	psto := testutil.CreateUser(t, db, models.RolePSTO, "Romblon")
	var out bytes.Buffer
	cli := &commandLine{db: db, out: &out}

	require.NoError(t, cli.run([]string{"admin", "migrate"}))
	assert.Contains(t, out.String(), "Database schema is up to date")

	require.NoError(t, cli.run([]string{"admin", "seed"}))
	assert.Contains(t, out.String(), "Seeded 4 programs and 5 PSTO offices")

	var office models.PSTOOffice
	require.NoError(t, db.Where("province = ?", "Romblon").First(&office).Error)
	require.NotNil(t, office.UserID)
	assert.Equal(t, psto.ID, *office.UserID)

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "seed"}))
	assert.Contains(t, out.String(), "Seeded 0 programs and 0 PSTO offices")
}
