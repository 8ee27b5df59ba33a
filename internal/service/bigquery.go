package service

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/cortexai/orderlens/internal/models"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// BigQueryOrderStore reads orders from a BigQuery table
type BigQueryOrderStore struct {
	client    *bigquery.Client
	projectID string
	location  string
	datasetID string
	tableID   string
}

// BigQueryConfig locates the orders table
type BigQueryConfig struct {
	ProjectID       string
	CredentialsFile string
	Location        string
	DatasetID       string
	TableID         string
}

// bqOrderRow mirrors the orders table schema
type bqOrderRow struct {
	OrderID      string    `bigquery:"order_id"`
	CustomerName string    `bigquery:"customer_name"`
	Product      string    `bigquery:"product"`
	Amount       float64   `bigquery:"amount"`
	Status       string    `bigquery:"status"`
	CreatedAt    time.Time `bigquery:"created_at"`
}

// NewBigQueryOrderStore creates a new BigQuery client
func NewBigQueryOrderStore(ctx context.Context, cfg BigQueryConfig) (*BigQueryOrderStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := bigquery.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	if cfg.Location != "" {
		client.Location = cfg.Location
	}

	return &BigQueryOrderStore{
		client:    client,
		projectID: cfg.ProjectID,
		location:  cfg.Location,
		datasetID: cfg.DatasetID,
		tableID:   cfg.TableID,
	}, nil
}

// Close releases the BigQuery client
func (s *BigQueryOrderStore) Close() error {
	return s.client.Close()
}

// TestConnection verifies BigQuery connectivity
func (s *BigQueryOrderStore) TestConnection(ctx context.Context) error {
	q := s.client.Query("SELECT 1")
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("query run: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("job wait: %w", err)
	}
	return status.Err()
}

// FindOrders returns the orders matching filter, most recent first
func (s *BigQueryOrderStore) FindOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	sql, params := bigQueryOrderQuery(s.tableRef(), filter)
	q := s.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}

	orders := []models.Order{}
	for {
		var row bqOrderRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		orders = append(orders, models.Order{
			OrderID:      row.OrderID,
			CustomerName: row.CustomerName,
			Product:      row.Product,
			Amount:       row.Amount,
			Status:       row.Status,
			CreatedAt:    row.CreatedAt,
		})
	}
	return orders, nil
}

// ReplaceOrders truncates the table with a DML delete and streams orders in.
// Rows still in the streaming buffer cannot be deleted, so reseeding right
// after a previous seed may fail until BigQuery flushes the buffer.
func (s *BigQueryOrderStore) ReplaceOrders(ctx context.Context, orders []models.Order) error {
	job, err := s.client.Query("DELETE FROM " + s.tableRef() + " WHERE TRUE").Run(ctx)
	if err != nil {
		return fmt.Errorf("delete orders: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("delete orders: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("delete orders: %w", err)
	}

	rows := make([]*bqOrderRow, len(orders))
	for i, o := range orders {
		rows[i] = &bqOrderRow{
			OrderID:      o.OrderID,
			CustomerName: o.CustomerName,
			Product:      o.Product,
			Amount:       o.Amount,
			Status:       o.Status,
			CreatedAt:    o.CreatedAt,
		}
	}
	if err := s.client.Dataset(s.datasetID).Table(s.tableID).Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("insert orders: %w", err)
	}
	return nil
}

func (s *BigQueryOrderStore) tableRef() string {
	return fmt.Sprintf("`%s.%s.%s`", s.projectID, s.datasetID, s.tableID)
}

func bigQueryOrderQuery(table string, filter models.OrderFilter) (string, []bigquery.QueryParameter) {
	where, args := renderOrderWhere(filter, func(n int) string { return fmt.Sprintf("@p%d", n) })
	params := make([]bigquery.QueryParameter, len(args))
	for i, a := range args {
		params[i] = bigquery.QueryParameter{Name: fmt.Sprintf("p%d", i+1), Value: a}
	}
	return "SELECT " + orderColumns + " FROM " + table + where + " ORDER BY created_at DESC", params
}
