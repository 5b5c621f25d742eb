//go:build integration

// Package testutil starts the disposable dependencies used by integration tests.
package testutil

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	ckafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
)

// AesKey is the base64 key integration tests configure for card encryption.
const AesKey = "Zk6IWX04Qm7ThZ5dJi8Xo4zyb8g9wfcxr5jxa1i3JKU="

// StartPostgres starts postgres with pgcrypto enabled and returns its DSN.
func StartPostgres() (dsn string, terminate func(), err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	const (
		user     = "db_user"
		password = "db_password"
		dbName   = "resilient_banking"
	)
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     user,
				"POSTGRES_PASSWORD": password,
				"POSTGRES_DB":       dbName,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to start postgres test container: %w", err)
	}
	terminate = func() {
		ctx, c := context.WithTimeout(context.Background(), 15*time.Second)
		defer c()
		_ = pgC.Terminate(ctx)
	}

	addr, err := hostPort(ctx, pgC, "5432/tcp")
	if err != nil {
		terminate()
		return "", nil, err
	}
	dsn = fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", user, password, addr, dbName)

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		terminate()
		return "", nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer func() { _ = conn.Close(context.Background()) }()
	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS pgcrypto;"); err != nil {
		terminate()
		return "", nil, fmt.Errorf("failed to prepare postgres database: %w", err)
	}
	return dsn, terminate, nil
}

// StartRedis starts redis and returns host:port.
func StartRedis() (addr string, terminate func(), err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to start redis test container: %w", err)
	}
	terminate = func() {
		ctx, c := context.WithTimeout(context.Background(), 30*time.Second)
		defer c()
		_ = rc.Terminate(ctx)
	}
	addr, err = hostPort(ctx, rc, "6379/tcp")
	if err != nil {
		terminate()
		return "", nil, err
	}
	return addr, terminate, nil
}

// StartKafka starts a single-node kafka and returns its bootstrap address.
func StartKafka() (bootstrap string, terminate func(), err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	kc, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to start kafka test container: %w", err)
	}
	terminate = func() {
		ctx, c := context.WithTimeout(context.Background(), 30*time.Second)
		defer c()
		_ = kc.Terminate(ctx)
	}
	brokers, err := kc.Brokers(ctx)
	if err != nil || len(brokers) == 0 {
		terminate()
		return "", nil, fmt.Errorf("failed to get kafka brokers: %w", err)
	}
	return brokers[0], terminate, nil
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(bootstrap, topic string, partitions int) error {
	admin, err := ckafka.NewAdminClient(&ckafka.ConfigMap{"bootstrap.servers": bootstrap})
	if err != nil {
		return err
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	results, err := admin.CreateTopics(ctx, []ckafka.TopicSpecification{{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}})
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Error.Code() != ckafka.ErrNoError && r.Error.Code() != ckafka.ErrTopicAlreadyExists {
			return r.Error
		}
	}
	return nil
}

func FreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// WaitForReady polls url until it answers below 500 or ctx ends.
func WaitForReady(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 500 * time.Millisecond}
	for {
		if ctx.Err() != nil {
			return fmt.Errorf("timeout waiting for %s", url)
		}
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode < 500 {
				return nil
			}
		}
		time.Sleep(150 * time.Millisecond)
	}
}

func hostPort(ctx context.Context, c testcontainers.Container, port string) (string, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get container host: %w", err)
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		return "", fmt.Errorf("failed to get mapped port %s: %w", port, err)
	}
	return net.JoinHostPort(host, mapped.Port()), nil
}
