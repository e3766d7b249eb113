package entab

//go:generate -command mockgen go run go.uber.org/mock/mockgen -destination=./reader_mock_test.go -package=entab io Reader
