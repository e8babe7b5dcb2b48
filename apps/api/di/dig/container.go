package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

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
	logsvc "github.com/trezcool/kidcare/services/logger"
	"github.com/trezcool/kidcare/storage/database"
	dummydb "github.com/trezcool/kidcare/storage/database/dummy"
	sqlxrepos "github.com/trezcool/kidcare/storage/database/sqlx"
)

const engineMemory = "memory"

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Repositories are the storage of every domain service, backed by the configured database engine.
type Repositories struct {
	dig.Out

	Users       user.Repository
	Centers     center.Repository
	Therapists  therapist.Repository
	Children    child.Repository
	Schedules   schedule.Repository
	Counseling  counseling.Repository
	Assessments assessment.Repository
	Payments    payment.Repository
	Visits      traffic.Repository
	Push        push.Repository
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

// newDB sets up the postgres database. It is nil with the memory engine.
func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	if conf.Database.Engine == engineMemory {
		return nil
	}

	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.MigrateUp(db.DB); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newRepositories(db *sqlx.DB) (Repositories, error) {
	if db == nil {
		mem, err := dummydb.Open()
		if err != nil {
			return Repositories{}, errors.Wrap(err, "opening in-memory database")
		}
		return Repositories{
			Users:       dummydb.NewUserRepository(mem),
			Centers:     dummydb.NewCenterRepository(mem),
			Therapists:  dummydb.NewTherapistRepository(mem),
			Children:    dummydb.NewChildRepository(mem),
			Schedules:   dummydb.NewScheduleRepository(mem),
			Counseling:  dummydb.NewCounselingRepository(mem),
			Assessments: dummydb.NewAssessmentRepository(mem),
			Payments:    dummydb.NewPaymentRepository(mem),
			Visits:      dummydb.NewVisitRepository(mem),
			Push:        dummydb.NewPushRepository(mem),
		}, nil
	}
	return Repositories{
		Users:       sqlxrepos.NewUserRepository(db),
		Centers:     sqlxrepos.NewCenterRepository(db),
		Therapists:  sqlxrepos.NewTherapistRepository(db),
		Children:    sqlxrepos.NewChildRepository(db),
		Schedules:   sqlxrepos.NewScheduleRepository(db),
		Counseling:  sqlxrepos.NewCounselingRepository(db),
		Assessments: sqlxrepos.NewAssessmentRepository(db),
		Payments:    sqlxrepos.NewPaymentRepository(db),
		Visits:      sqlxrepos.NewVisitRepository(db),
		Push:        sqlxrepos.NewPushRepository(db),
	}, nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newValidator registers the custom validations of every domain.
func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	child.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	assessment.InitValidators(validate, translator)
	payment.InitValidators(validate, translator)
	return validate
}

func newScheduleService(repo schedule.Repository, children child.Repository, therapists therapist.Repository) *schedule.Service {
	return schedule.NewService(repo, children, therapists)
}

func newCounselingService(repo counseling.Repository, children child.Repository, therapists therapist.Repository) *counseling.Service {
	return counseling.NewService(repo, children, therapists)
}

func newAssessmentService(repo assessment.Repository, children child.Repository, therapists therapist.Repository) *assessment.Service {
	return assessment.NewService(repo, children, therapists)
}

func newPaymentService(
	repo payment.Repository,
	children child.Repository,
	users *user.Service,
	mailSvc core.EmailService,
	logger core.Logger,
) *payment.Service {
	return payment.NewService(repo, children, users, mailSvc, logger)
}

func newPinger(conf *core.Config, logger core.Logger) *seo.Pinger {
	return seo.NewPinger(conf, nil, logger)
}

func newBlogFetcher(conf *core.Config, logger core.Logger) *blog.Fetcher {
	return blog.NewFetcher(conf, nil, logger)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))

	must(c.Provide(user.NewService))
	must(c.Provide(center.NewService))
	must(c.Provide(therapist.NewService))
	must(c.Provide(child.NewService))
	must(c.Provide(newScheduleService))
	must(c.Provide(newCounselingService))
	must(c.Provide(newAssessmentService))
	must(c.Provide(newPaymentService))
	must(c.Provide(traffic.NewService))
	must(c.Provide(push.NewService))
	must(c.Provide(newPinger))
	must(c.Provide(newBlogFetcher))

	must(c.Provide(echoapi.NewServer))
	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
