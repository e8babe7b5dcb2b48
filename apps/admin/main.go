package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/center"
	"github.com/trezcool/kidcare/core/schedule"
	"github.com/trezcool/kidcare/core/seo"
	"github.com/trezcool/kidcare/core/therapist"
	"github.com/trezcool/kidcare/core/user"
	logsvc "github.com/trezcool/kidcare/services/logger"
	"github.com/trezcool/kidcare/storage/database"
	sqlxrepos "github.com/trezcool/kidcare/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(appLogger)

	// start CLI
	usrRepo := sqlxrepos.NewUserRepository(db)
	children := sqlxrepos.NewChildRepository(db)
	therapists := sqlxrepos.NewTherapistRepository(db)
	cli := commandLine{
		out:        os.Stdout,
		db:         db.DB,
		validate:   validate,
		usrRepo:    usrRepo,
		centers:    center.NewService(sqlxrepos.NewCenterRepository(db), conf),
		therapists: therapist.NewService(therapists),
		schedules:  schedule.NewService(sqlxrepos.NewScheduleRepository(db), children, therapists),
		pinger:     seo.NewPinger(conf, nil, appLogger),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
