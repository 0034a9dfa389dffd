package storage

// Row types mirror the table columns. Conversion to core types happens in
// repository.go only.

type Supplier struct {
	ID                   string
	Name                 string
	DefaultPaymentMethod string
}

type Entry struct {
	ID            string
	Date          string
	SupplierID    string
	AmountCents   int64
	Description   string
	PaymentMethod string
	Version       int64
	SyncStatus    string
}

type User struct {
	ID           string
	Username     string
	PasswordHash string
	IsAdmin      bool
}

type CreateEntryParams struct {
	ID            string
	Date          string
	SupplierID    string
	AmountCents   int64
	Description   string
	PaymentMethod string
}

type UpdateEntryParams struct {
	Date          string
	SupplierID    string
	AmountCents   int64
	Description   string
	PaymentMethod string
	ID            string
}

type UpsertSupplierParams struct {
	ID                   string
	Name                 string
	DefaultPaymentMethod string
}

type CreateUserParams struct {
	ID           string
	Username     string
	PasswordHash string
	IsAdmin      bool
}

type UpdateUserPasswordParams struct {
	PasswordHash string
	Username     string
}

type GetPendingSyncEntriesRow struct {
	ID          string
	Version     int64
	CreatedUnix int64
}
