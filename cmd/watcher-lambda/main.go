package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"ecrwatch/internal/broker"
	"ecrwatch/internal/config"
	"ecrwatch/internal/logger"
	"ecrwatch/internal/watcher"
	"ecrwatch/pkg/bootstrap"
	"ecrwatch/pkg/logging"
)

const serviceName = "watcher-lambda"

// handler runs one SQS delivery through the watcher and returns the
// "{serviceArn}${operationId}" entries for every action it started.
type handler struct {
	service *watcher.Service
}

func (h *handler) Handle(ctx context.Context, ev events.SQSEvent) ([]string, error) {
	return h.service.ProcessBatch(ctx, messagesFromSQS(ev)), nil
}

func messagesFromSQS(ev events.SQSEvent) []broker.Message {
	msgs := make([]broker.Message, 0, len(ev.Records))
	for _, r := range ev.Records {
		headers := make(map[string]string, len(r.MessageAttributes))
		for k, attr := range r.MessageAttributes {
			if attr.StringValue != nil {
				headers[k] = *attr.StringValue
			}
		}
		msgs = append(msgs, broker.Message{
			ID:      r.MessageId,
			Body:    []byte(r.Body),
			Headers: headers,
		})
	}
	return msgs
}

func main() {
	earlyLog := logging.NewEarlyLog()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		earlyLog.Fatal("Failed to load config: %v", err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		earlyLog.Fatal("Failed to init logger: %v", err)
	}
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(serviceName)
	}

	ctx := logging.WithServiceName(context.Background(), serviceName)

	base := bootstrap.NewBase(cfg, log)
	if err := base.InitSession(); err != nil {
		log.Fatalf("Failed to create AWS session: %v", err)
	}

	registry, err := bootstrap.LoadRegistry(ctx, cfg.Matchers, base.Session, log)
	if err != nil {
		log.Fatalf("Failed to load matchers: %v", err)
	}

	if err := base.InitBroker(ctx, "", false); err != nil {
		log.Fatalf("Failed to initialize broker: %v", err)
	}

	dbConnector := bootstrap.NewDatabaseConnector(cfg, log)
	rdb, err := dbConnector.InitRedis(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	db, err := dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}

	svc, err := bootstrap.NewWatcher(cfg, registry, bootstrap.WatcherDeps{
		Session:  base.Session,
		Requeuer: base.Producer,
		Redis:    rdb,
		DB:       db,
	}, log)
	if err != nil {
		log.Fatalf("Failed to build watcher: %v", err)
	}

	log.InfowCtx(ctx, "Watcher ready", "matchers", registry.Len())

	h := &handler{service: svc}
	lambda.Start(h.Handle)
}
