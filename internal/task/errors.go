package task

import "errors"

var (
	// ErrHandlerNotFound — для семейства задач не зарегистрирован обработчик
	ErrHandlerNotFound = errors.New("task handler not found")
	// ErrTaskCanceled — задача отменена до получения результата
	ErrTaskCanceled = errors.New("task canceled")
	// ErrInvalidTransition — недопустимый переход состояния
	ErrInvalidTransition = errors.New("invalid task state transition")
	// ErrBadArguments — вход или параметры не подходят обработчику
	ErrBadArguments = errors.New("bad task arguments")
)
