package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"dost-pmns-api/models"
	"dost-pmns-api/services"
	"dost-pmns-api/utils"

	"golang.org/x/term"
	"gorm.io/gorm"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db  *gorm.DB
	out io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  createuser -email EMAIL -role ROLE [-province PROVINCE] [-first NAME] [-last NAME] - create an active account, password prompted")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - set a user's password, prompted")
	fmt.Fprintln(cli.out, "  migrate - create or update the database schema")
	fmt.Fprintln(cli.out, "  migrate-passwords - hash passwords still stored in plain text")
	fmt.Fprintln(cli.out, "  seed - insert the programs and provincial offices")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "createuser":
		fs := cli.newFlagSet("createuser")
		email := fs.String("email", "", "The user's email.")
		role := fs.String("role", "", "One of psto, dost_mimaropa, super_admin, proponent.")
		province := fs.String("province", "", "Province, required for psto and proponent.")
		first := fs.String("first", "Admin", "First name.")
		last := fs.String("last", "User", "Last name.")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *email == "" || *role == "" {
			fs.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.createUser(*email, *role, *province, *first, *last, pwd)

	case "resetpassword":
		fs := cli.newFlagSet("resetpassword")
		email := fs.String("email", "", "The user's email. The password will be prompted next.")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *email == "" {
			fs.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.resetPassword(*email, pwd)

	case "migrate":
		if err := models.AutoMigrate(cli.db); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "Database schema is up to date")
		return nil

	case "migrate-passwords":
		return cli.migratePasswords()

	case "seed":
		res, err := services.NewReferenceService(cli.db).Seed()
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Seeded %d programs and %d PSTO offices\n", res.Programs, res.Offices)
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) createUser(email, role, province, first, last, password string) error {
	user, err := services.NewUserService(cli.db).Create(services.CreateUserInput{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Password:  password,
		Role:      role,
		Province:  province,
		Status:    models.UserStatusActive,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Created %s %s (%s)\n", user.Role, user.Email, user.UserCode)
	return nil
}

func (cli *commandLine) resetPassword(email, password string) error {
	var user models.User
	if err := cli.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %s not found", email)
		}
		return err
	}
	if ok, msg := utils.ValidatePassword(password); !ok {
		return errors.New(msg)
	}
	hashed, err := models.HashPassword(password)
	if err != nil {
		return err
	}
	if err := cli.db.Model(&user).Updates(map[string]interface{}{
		"password":               hashed,
		"reset_password_token":   nil,
		"reset_password_expires": nil,
	}).Error; err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Password updated for %s\n", user.Email)
	return nil
}

// migratePasswords hashes every password that is not a bcrypt hash yet.
func (cli *commandLine) migratePasswords() error {
	var users []models.User
	if err := cli.db.Select("id", "email", "password").Find(&users).Error; err != nil {
		return fmt.Errorf("fetch users: %w", err)
	}

	migrated, failed := 0, 0
	for _, user := range users {
		if user.Password == "" || models.IsPasswordHash(user.Password) {
			continue
		}
		hashed, err := models.HashPassword(user.Password)
		if err != nil {
			fmt.Fprintf(cli.out, "Failed to hash password for %s: %v\n", user.Email, err)
			failed++
			continue
		}
		if err := cli.db.Model(&models.User{}).Where("id = ?", user.ID).UpdateColumn("password", hashed).Error; err != nil {
			fmt.Fprintf(cli.out, "Failed to update password for %s: %v\n", user.Email, err)
			failed++
			continue
		}
		migrated++
	}

	fmt.Fprintf(cli.out, "Password migration completed: %d hashed, %d failed\n", migrated, failed)
	if failed > 0 {
		return fmt.Errorf("%d passwords could not be migrated", failed)
	}
	return nil
}
