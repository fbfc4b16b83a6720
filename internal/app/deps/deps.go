package deps

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sync"
	"time"
	"usermanager/internal/config"
	dl "usermanager/internal/core/domain/logging"
	drl "usermanager/internal/core/domain/rate_limiter"
	duow "usermanager/internal/core/domain/unit_of_work"
	"usermanager/internal/core/domain/user"
	"usermanager/internal/db/migrations"
	dbmongo "usermanager/internal/db/mongo"
	"usermanager/internal/db/sqlite"
	uow "usermanager/internal/db/unit_of_work"
	dbuser "usermanager/internal/db/user"
	"usermanager/internal/implementations/email"
	eventstream "usermanager/internal/implementations/event_stream"
	"usermanager/internal/implementations/identity"
	"usermanager/internal/implementations/logging"
	passwordhasher "usermanager/internal/implementations/password_hasher"
	ratelimiter "usermanager/internal/implementations/rate_limiter"
	tokengenerator "usermanager/internal/implementations/token_generator"
	"usermanager/internal/rabbitmq"
	accountevents "usermanager/internal/rabbitmq/publishers/account_events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v9"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/r3labs/sse/v2"
	"go.mongodb.org/mongo-driver/mongo"
)

type Deps struct {
	Config    *config.Config
	AwsConfig aws.Config
	Logger    dl.Logger

	DB        *pgxpool.Pool
	SQLite    *sql.DB
	Mongo     *mongo.Client
	Redis     *redis.Client
	Rabbitmq  *rabbitmq.Connection
	SseServer *sse.Server

	Now func() time.Time

	UnitOfWork       duow.UnitOfWork
	UserRepository   user.UserRepository
	IdentityResolver user.IdentityResolver
	EventListeners   []user.EventListener

	// RateLimiter is nil when REDIS_URL is not set.
	RateLimiter drl.RateLimiter

	PasswordHasher              user.PasswordHasher
	PasswordResetTokenGenerator user.PasswordResetTokenGenerator
	// PasswordResetTokenSender is nil when email sending is disabled.
	PasswordResetTokenSender user.PasswordResetTokenSender
	ResetPolicy              user.ResetPolicy
}

// InitDeps builds everything the HTTP server needs.
func InitDeps() (*Deps, func()) {
	deps := &Deps{}

	deps.initConfig()
	closeLogger := deps.initLogger(logging.NewZapLogger())
	deps.initCore()

	closeStorage := deps.initStorage()
	closeRedisClient := deps.initRedisClient()
	closeRabbitmq := deps.initRabbitmq()
	closeSseServer := deps.initSseServer()
	deps.initEmailSender()

	deps.IdentityResolver = deps.initIdentityResolver()
	flushSentry := deps.initSentry()

	return deps, closeAll(
		closeSseServer,
		closeRabbitmq,
		closeRedisClient,
		closeStorage,
		closeLogger,
		flushSentry,
	)
}

// InitCommandDeps builds the subset used by the command-line front end.
func InitCommandDeps() (*Deps, func()) {
	deps := &Deps{}

	deps.initConfig()
	closeLogger := deps.initLogger(logging.NewZapDevelopmentLogger())
	deps.initCore()

	closeStorage := deps.initStorage()
	closeRabbitmq := deps.initRabbitmq()

	deps.IdentityResolver = deps.initIdentityResolver()

	return deps, closeAll(closeRabbitmq, closeStorage, closeLogger)
}

func closeAll(closeFuncs ...func()) func() {
	return func() {
		var wg sync.WaitGroup
		wg.Add(len(closeFuncs))
		for _, closeFunc := range closeFuncs {
			closeFunc := closeFunc
			go func() {
				closeFunc()
				wg.Done()
			}()
		}

		wg.Wait()
	}
}

func (deps *Deps) initConfig() {
	config, err := config.Load()
	if err != nil {
		panic(err)
	}
	deps.Config = config
}

func (deps *Deps) initLogger(logger *logging.ZapLogger) func() {
	deps.Logger = logger
	return func() { logger.Sync() }
}

func (deps *Deps) initCore() {
	deps.Now = func() time.Time { return time.Now().UTC() }
	deps.ResetPolicy = deps.Config.ResetPolicy()
	deps.PasswordHasher = passwordhasher.NewBcrypt(deps.Config.Secret, deps.Config.BcryptHasherCost)
	deps.PasswordResetTokenGenerator = tokengenerator.NewGenerator(tokengenerator.DefaultTokenBytes)
}

func (deps *Deps) initStorage() func() {
	idGenerator := identity.NewUUID()
	switch deps.Config.StorageDriver {
	case config.StoragePostgres:
		return deps.initPgxPool(idGenerator)
	case config.StorageSQLite:
		return deps.initSQLite(idGenerator)
	case config.StorageMongoDB:
		return deps.initMongo(idGenerator)
	}
	panic(fmt.Sprintf("unsupported storage driver %q", deps.Config.StorageDriver))
}

func (deps *Deps) initPgxPool(idGenerator user.IDGenerator) func() {
	if err := migrations.ApplyPostgres(deps.Config.PostgresqlURL); err != nil {
		deps.Logger.Error(context.Background(), "Could not apply DB migrations.", dl.Entry("err", err))
		panic(err)
	}
	db, err := pgxpool.Connect(context.Background(), deps.Config.PostgresqlURL)
	if err != nil {
		deps.Logger.Error(context.Background(), "Could not connect to DB.", dl.Entry("err", err))
		panic(err)
	}
	deps.DB = db
	deps.UnitOfWork = uow.NewPgxUnitOfWork(db, idGenerator)
	deps.UserRepository = dbuser.NewPgxRepository(db, idGenerator)
	return func() {
		deps.Logger.Info(context.Background(), "Shutting down DB connection.")
		db.Close()
		deps.Logger.Info(context.Background(), "DB connection shut down.")
	}
}

func (deps *Deps) initSQLite(idGenerator user.IDGenerator) func() {
	db, err := sqlite.Open(context.Background(), deps.Config.SQLitePath)
	if err != nil {
		deps.Logger.Error(
			context.Background(),
			"Could not open SQLite DB.",
			dl.Entry("path", deps.Config.SQLitePath),
			dl.Entry("err", err),
		)
		panic(err)
	}
	deps.SQLite = db
	deps.UnitOfWork = sqlite.NewUnitOfWork(db, idGenerator)
	deps.UserRepository = sqlite.NewUserRepository(db, idGenerator)
	return func() {
		deps.Logger.Info(context.Background(), "Closing SQLite DB.")
		db.Close()
		deps.Logger.Info(context.Background(), "SQLite DB closed.")
	}
}

func (deps *Deps) initMongo(idGenerator user.IDGenerator) func() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := dbmongo.Connect(ctx, deps.Config.MongodbURL)
	if err != nil {
		deps.Logger.Error(ctx, "Could not connect to MongoDB.", dl.Entry("err", err))
		panic(err)
	}
	collection := client.Database(deps.Config.MongodbDatabase).Collection(dbmongo.UsersCollection)
	if err := dbmongo.EnsureIndexes(ctx, collection); err != nil {
		deps.Logger.Error(ctx, "Could not create MongoDB indexes.", dl.Entry("err", err))
		panic(err)
	}
	deps.Mongo = client
	repository := dbmongo.NewUserRepository(collection, idGenerator)
	deps.UnitOfWork = dbmongo.NewUnitOfWork(client, repository)
	deps.UserRepository = repository
	return func() {
		deps.Logger.Info(context.Background(), "Shutting down MongoDB client.")
		client.Disconnect(context.Background())
		deps.Logger.Info(context.Background(), "MongoDB client shut down.")
	}
}

func (deps *Deps) initIdentityResolver() user.IdentityResolver {
	resolver, err := identity.NewResolver(deps.Config.IdentityResolutionMode, deps.UserRepository)
	if err != nil {
		panic(err)
	}
	return resolver
}

func (deps *Deps) initRedisClient() func() {
	if deps.Config.RedisURL == "" {
		deps.Logger.Warning(context.Background(), "Rate limiting is disabled, REDIS_URL is not set.")
		return func() {}
	}
	redisOpt, err := redis.ParseURL(deps.Config.RedisURL)
	if err != nil {
		deps.Logger.Error(context.Background(), "Could not connect to Redis.", dl.Entry("err", err))
		panic(err)
	}
	redisClient := redis.NewClient(redisOpt)
	deps.Redis = redisClient
	deps.RateLimiter = ratelimiter.NewRedis(redisClient, deps.Logger, deps.Now)
	return func() {
		deps.Logger.Info(context.Background(), "Shutting down Redis client.")
		redisClient.Close()
		deps.Logger.Info(context.Background(), "Redis client shut down.")
	}
}

func (deps *Deps) initRabbitmq() func() {
	if deps.Config.RabbitmqURL == "" {
		deps.Logger.Info(context.Background(), "Account events are not published, RABBITMQ_URL is not set.")
		return func() {}
	}
	connection, err := rabbitmq.Dial(deps.Config.RabbitmqURL, deps.Logger)
	if err != nil {
		deps.Logger.Error(context.Background(), "Could not connect to RabbitMQ.", dl.Entry("err", err))
		panic("could not connect to RabbitMQ")
	}
	deps.Rabbitmq = connection

	channel, err := connection.Channel()
	if err != nil {
		deps.Logger.Error(context.Background(), "Could not create RabbitMQ channel.", dl.Entry("err", err))
		panic(err)
	}
	if err := channel.ExchangeDeclare(deps.Config.RabbitmqAccountExchange, "topic"); err != nil {
		deps.Logger.Error(context.Background(), "Could not create RabbitMQ exchange.", dl.Entry("err", err))
		panic(err)
	}
	deps.EventListeners = append(
		deps.EventListeners,
		accountevents.NewRabbitMQ(deps.Logger, channel, deps.Config.RabbitmqAccountExchange),
	)

	return func() {
		deps.Logger.Info(context.Background(), "Shutting down RabbitMQ connection.")
		channel.Close()
		connection.Close()
		deps.Logger.Info(context.Background(), "RabbitMQ connection shut down.")
	}
}

func (deps *Deps) initSseServer() func() {
	deps.SseServer = sse.New()
	deps.SseServer.AutoStream = false
	deps.SseServer.AutoReplay = false
	deps.EventListeners = append(deps.EventListeners, eventstream.NewSSE(deps.SseServer, eventstream.StreamID))
	return func() {
		deps.Logger.Info(context.Background(), "Shutting down SSE server.")
		deps.SseServer.Close()
		deps.Logger.Info(context.Background(), "SSE server shut down.")
	}
}

func (deps *Deps) initEmailSender() {
	if !deps.Config.IsEmailSendingEnabled() {
		deps.Logger.Warning(context.Background(), "Password reset emails are disabled, AWS_EMAIL_SENDER is not set.")
		return
	}
	baseUrl, err := url.Parse(deps.Config.AwsEmailPasswordResetBaseUrl)
	if err != nil {
		panic(fmt.Sprintf("invalid AWS_EMAIL_PASSWORD_RESET_BASE_URL: %v", err))
	}

	deps.initAwsConfig()
	deps.PasswordResetTokenSender = email.NewEmailSender(
		deps.AwsConfig,
		deps.Config.AwsEmailSender,
		deps.Config.AwsEmailPasswordResetTemplate,
		*baseUrl,
	)
}

func (deps *Deps) initAwsConfig() {
	cfg, err := awsConfig.LoadDefaultConfig(
		context.Background(),
		awsConfig.WithRegion(deps.Config.AwsRegion),
		awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				deps.Config.AwsAccessKey,
				deps.Config.AwsSecretKey,
				"",
			),
		),
		awsConfig.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(
				retry.AddWithMaxBackoffDelay(retry.NewStandard(), time.Second*5),
				3,
			)
		}),
	)
	if err != nil {
		panic(err)
	}
	deps.AwsConfig = cfg
}

func (deps *Deps) initSentry() func() {
	if deps.Config.SentryDsn != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              deps.Config.SentryDsn,
			TracesSampleRate: 0.01,
		})
		if err != nil {
			panic(fmt.Sprintf("could not init Sentry: %v\n", err))
		}
		deps.Logger.Info(context.Background(), "Sentry has been successfully initialized.")
		return func() {
			ok := sentry.Flush(5 * time.Second)
			deps.Logger.Info(context.Background(), "Sentry events flushed.", dl.Entry("ok", ok))
		}
	}

	deps.Logger.Info(context.Background(), "Sentry is disabled.")
	return func() {}
}
