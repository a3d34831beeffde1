package db

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Diafaan SQLite schema
const (
	errorCountQuery = `
		SELECT COUNT(*) AS TotalError
		FROM MessageOut
		WHERE StatusCode = ?
		AND GatewayId = ?
	`
	priorityCountQuery = `
		SELECT COUNT(*) AS total_registros
		FROM SendQueue
		WHERE Priority = ?
	`
)

// messageCountQueries count messages sent through a gateway in the trailing
// window. The first parameter is the window in seconds as an int32 (SQL
// Server's DATEADD rejects bigint), the second the gateway.
var messageCountQueries = map[string]string{
	DialectSQLServer: `
		SELECT COUNT(*)
		FROM dbo.messagelog
		WHERE SendTime >= DATEADD(second, -CAST(@p1 AS int), GETDATE())
		AND Gateway = @p2
	`,
	DialectPostgres: `
		SELECT COUNT(*)
		FROM messagelog
		WHERE sendtime >= now() - $1::int * interval '1 second'
		AND gateway = $2
	`,
	DialectSQLite: `
		SELECT COUNT(*)
		FROM MessageLog
		WHERE SendTime >= datetime('now', '-' || ? || ' seconds')
		AND Gateway = ?
	`,
}

// MessageRate returns messages per second sent through gateway over window.
func (d *DB) MessageRate(ctx context.Context, gateway string, window time.Duration) (float64, error) {
	query, args, err := messageRateQuery(d.dialect, gateway, window)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, classify("count sent messages", err)
	}
	return float64(count) / window.Truncate(time.Second).Seconds(), nil
}

func messageRateQuery(dialect, gateway string, window time.Duration) (string, []any, error) {
	query, ok := messageCountQueries[dialect]
	if !ok {
		return "", nil, fmt.Errorf("no message log query for dialect %q", dialect)
	}
	seconds := int64(window / time.Second)
	if seconds <= 0 {
		return "", nil, fmt.Errorf("window %s is shorter than one second", window)
	}
	if seconds > math.MaxInt32 {
		return "", nil, fmt.Errorf("window %s is too long", window)
	}
	return query, []any{int32(seconds), gateway}, nil
}

// ErrorCount returns the number of outgoing messages of a gateway with the
// given status code.
func (d *DB) ErrorCount(ctx context.Context, gatewayID, statusCode string) (int64, error) {
	var count int64
	if err := d.db.QueryRowContext(ctx, errorCountQuery, statusCode, gatewayID).Scan(&count); err != nil {
		return 0, classify("count failed messages", err)
	}
	return count, nil
}

// PriorityCount returns the number of queued messages with the given priority.
func (d *DB) PriorityCount(ctx context.Context, priority string) (int64, error) {
	var count int64
	if err := d.db.QueryRowContext(ctx, priorityCountQuery, priority).Scan(&count); err != nil {
		return 0, classify("count queued messages", err)
	}
	return count, nil
}

// QueueCounts returns the number of queued messages per gateway id. Gateways
// without queued messages are reported as zero.
func (d *DB) QueueCounts(ctx context.Context, gatewayIDs []int) (map[int]int64, error) {
	counts := make(map[int]int64, len(gatewayIDs))
	if len(gatewayIDs) == 0 {
		return counts, nil
	}

	args := make([]any, len(gatewayIDs))
	for i, id := range gatewayIDs {
		args[i] = id
		counts[id] = 0
	}
	query := fmt.Sprintf(`
		SELECT gatewayid, COUNT(*) AS total_registros
		FROM sendqueue
		WHERE gatewayid IN (%s)
		GROUP BY gatewayid
	`, strings.TrimSuffix(strings.Repeat("?,", len(gatewayIDs)), ","))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("count queued messages", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var count int64
		if err := rows.Scan(&id, &count); err != nil {
			return nil, classify("scan queue count", err)
		}
		counts[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, classify("read queue counts", err)
	}
	return counts, nil
}
