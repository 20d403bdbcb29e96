package version

import "fmt"

// Переменные заполняются при сборке через ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает информацию о версии сборки
func Info() (string, string, string) {
	return version, commit, date
}

// String возвращает строковое представление версии
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// GetVersion возвращает версию
func GetVersion() string {
	return version
}

// GetCommit возвращает хеш коммита
func GetCommit() string {
	return commit
}

// GetDate возвращает дату сборки
func GetDate() string {
	return date
}
