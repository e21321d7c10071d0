package mysql

func NewFromDSN(dsn string) (*Store, error) {
	return newFromDSN(dsn, nil)
}

func (s *Store) DSN() string {
	return s.dsn
}
