package postgres

func NewFromConnString(connString string) *Store {
	return &Store{connString: connString}
}

func (s *Store) ConnString() string {
	return s.connString
}

var BoolToSmallint = boolToSmallint

func SchemaDDL() []string {
	return schema
}
