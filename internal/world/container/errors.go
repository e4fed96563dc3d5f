package container

import "errors"

var (
	// ErrNotInitialized возвращается при записи в контейнер без данных
	ErrNotInitialized = errors.New("container is not initialized")
	// ErrOutOfBounds возвращается при обращении за пределы расширенных границ
	ErrOutOfBounds = errors.New("position is out of container bounds")
)
