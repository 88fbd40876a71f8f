package storage

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoscout-evaluator/models"
)

func TestWriteClearsAndInserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pw := &PostgresWriter{db: db}

	listings := []*models.Listing{
		{Title: "BMW 320i", Price: 18500, Mileage: 45000, URL: "https://www.autoscout24.ch/de/d/1"},
		{Title: "BMW 320i Touring", Price: 21000, Mileage: 30000, URL: "https://www.autoscout24.ch/de/d/2"},
	}

	mock.ExpectExec("DELETE FROM car_listings").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO car_listings").
		WithArgs("BMW 320i", 18500.0, int64(45000), "https://www.autoscout24.ch/de/d/1",
			"BMW 320i Touring", 21000.0, int64(30000), "https://www.autoscout24.ch/de/d/2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	err = pw.Write(listings)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteEmptyIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pw := &PostgresWriter{db: db}

	err = pw.Write(nil)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pw := &PostgresWriter{db: db}

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "title", "price", "mileage", "url", "created_at"}).
		AddRow(1, "BMW 320i", 18500.0, 45000, "https://www.autoscout24.ch/de/d/1", now).
		AddRow(2, "Neues Fahrzeug BMW", 42000.0, 0, "https://www.autoscout24.ch/de/d/2", now)

	mock.ExpectQuery("SELECT id, title, price, mileage, url, created_at FROM car_listings").
		WillReturnRows(rows)

	listings, err := pw.FetchAll()

	assert.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, 18500.0, listings[0].Price)
	assert.Equal(t, 45000.0, listings[0].Mileage)
	assert.Equal(t, 0.0, listings[1].Mileage)
	assert.NoError(t, mock.ExpectationsWereMet())
}
