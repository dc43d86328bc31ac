package persistence

import "fmt"

// Open connects the archive backend named by driver: "gorm", "pq" or "none".
func Open(driver, host string, port int, user, password, dbname string) (Database, error) {
	switch driver {
	case "gorm":
		db, err := NewGormPostgreSQL(host, port, user, password, dbname)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "pq":
		db, err := NewPostgreSQL(host, port, user, password, dbname)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "none", "":
		return NewMemory(MaxListLimit), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
