package common

import (
	"database/sql"
	"fmt"
	stdlog "log"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/botlabs-gg/patchbot/common/config"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/jonas747/discordgo/v2"
	"github.com/mediocregopher/radix/v3"
)

const (
	VERSION = "0.4.0"
)

var (
	GORM *gorm.DB
	PQ   *sql.DB

	RedisPool *radix.Pool
	RedisAddr string

	BotSession *discordgo.Session
	BotUser    *discordgo.User

	// Set to true when running under the test suite
	Testing = os.Getenv("PATCHBOT_TESTING") != ""

	logger = GetFixedPrefixLogger("common")
)

var (
	ConfBotToken = config.RegisterOption("patchbot.bot_token", "Discord bot token", "")
	ConfRedis    = config.RegisterOption("patchbot.redis", "Redis address", "localhost:6379")

	ConfPQHost     = config.RegisterOption("patchbot.pqhost", "Postgres host", "localhost")
	ConfPQUsername = config.RegisterOption("patchbot.pqusername", "Postgres user", "postgres")
	ConfPQPassword = config.RegisterOption("patchbot.pqpassword", "Postgres password", "")
	ConfPQDB       = config.RegisterOption("patchbot.pqdb", "Postgres database", "patchbot")

	confMaxSQLConns   = config.RegisterOption("patchbot.max_sql_conns", "Max open postgres connections", 3)
	confMaxRedisConns = config.RegisterOption("patchbot.max_redis_conns", "Max open redis connections", 10)
)

// CoreInit sets up the essential parts: logging and redis
func CoreInit(loadConfig bool) error {
	rand.Seed(time.Now().UnixNano())

	stdlog.SetOutput(&STDLogProxy{})
	stdlog.SetFlags(0)

	if loadConfig {
		config.AddSource(&config.EnvSource{})
		config.Load()
	}

	err := connectRedis(ConfRedis.GetString())
	if err != nil {
		return err
	}

	// with redis up we can also pull config overrides stored there
	config.AddSource(&config.RedisConfigStore{Pool: RedisPool})
	config.Load()

	return nil
}

// Init sets up the rest: discord session, database and queued schemas
func Init() error {
	if ConfBotToken.GetString() == "" {
		return ErrWithCaller(errMissingToken)
	}

	err := setupGlobalDGoSession()
	if err != nil {
		return err
	}

	err = connectDB(ConfPQHost.GetString(), ConfPQUsername.GetString(), ConfPQPassword.GetString(), ConfPQDB.GetString(), confMaxSQLConns.GetInt())
	if err != nil {
		return err
	}

	BotUser, err = BotSession.UserMe()
	if err != nil {
		return ErrWithCaller(err)
	}

	err = RedisPool.Do(radix.Cmd(nil, "SET", "patchbot_version", VERSION))
	if err != nil {
		return ErrWithCaller(err)
	}

	initQueuedSchemas()

	return nil
}

func setupGlobalDGoSession() (err error) {
	token := ConfBotToken.GetString()

	BotSession, err = discordgo.New(token)
	if err != nil {
		return ErrWithCaller(err)
	}

	BotSession.MaxRestRetries = 3

	return nil
}

func connectRedis(addr string) (err error) {
	RedisPool, err = radix.NewPool("tcp", addr, confMaxRedisConns.GetInt())
	if err != nil {
		logger.WithError(err).Error("Failed initializing redis pool")
		return
	}

	RedisAddr = addr
	return
}

func connectDB(host, user, pass, dbName string, maxConns int) error {
	if host == "" {
		host = "localhost"
	}

	db, err := gorm.Open("postgres", fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable password='%s'", host, user, dbName, pass))
	if err != nil {
		return err
	}

	GORM = db
	PQ = db.DB()
	PQ.SetMaxOpenConns(maxConns)
	GORM.SetLogger(&GORMLogger{})

	return nil
}

// InitTestRedis loads config defaults and sets up the redis pool against
// the test database, tests that need redis call this from TestMain and
// bail if it errors
func InitTestRedis() error {
	config.AddSource(&config.EnvSource{})
	config.Load()

	addr := os.Getenv("PATCHBOT_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	customConnFunc := func(network, address string) (radix.Conn, error) {
		return radix.Dial(network, address, radix.DialSelectDB(2))
	}

	pool, err := radix.NewPool("tcp", addr, 5, radix.PoolConnFunc(customConnFunc))
	if err != nil {
		return err
	}

	RedisPool = pool
	RedisAddr = addr
	return nil
}

var (
	shutdownFunc func()
	shutdownOnce sync.Once
)

func SetShutdownFunc(f func()) {
	shutdownFunc = f
}

// Shutdown runs the shutdown function once, set it before signals can arrive
func Shutdown() {
	shutdownOnce.Do(func() {
		if shutdownFunc != nil {
			shutdownFunc()
		}
	})
}
