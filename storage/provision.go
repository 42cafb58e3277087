package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"
)

const queueAlreadyExists = "QueueAlreadyExists"

// Provision creates the tables and the events queue named in tables.
// Existing resources are left untouched, so it is safe to run on every deploy.
func Provision(ctx context.Context, connStr string, tables Tables) error {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, nil)
	if err != nil {
		return err
	}
	for _, name := range []string{tables.Team, tables.Projects, tables.Tasks} {
		if name == "" {
			continue
		}
		if _, err := svc.NewClient(name).CreateTable(ctx, nil); err != nil && !alreadyExists(err, string(aztables.TableAlreadyExists)) {
			return fmt.Errorf("create table %s: %w", name, err)
		}
		log.WithField("table", name).Info("table ready")
	}

	if tables.EventsQueue == "" {
		return nil
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, tables.EventsQueue, nil)
	if err != nil {
		return err
	}
	if _, err := q.Create(ctx, nil); err != nil && !alreadyExists(err, queueAlreadyExists) {
		return fmt.Errorf("create queue %s: %w", tables.EventsQueue, err)
	}
	log.WithField("queue", tables.EventsQueue).Info("queue ready")
	return nil
}

func alreadyExists(err error, code string) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.ErrorCode == code
}
