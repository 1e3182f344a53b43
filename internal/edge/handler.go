package edge

import "context"

// Handler 是用户提供的边缘函数。实现必须把 ev 当作只读输入，通过 Result 返回新值。
type Handler interface {
	Invoke(ctx context.Context, ev Event) (Result, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, ev Event) (Result, error)

// Invoke makes HandlerFunc satisfy Handler.
func (f HandlerFunc) Invoke(ctx context.Context, ev Event) (Result, error) {
	return f(ctx, ev)
}
