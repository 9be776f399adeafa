// middleware — net/http мидлвары служебного HTTP-сервера бота
// (пробы, /metrics и приём webhook-апдейтов). Подключаются через chi: r.Use / r.With.
package middleware

import (
	"net/http"
)

// Middleware — мидлвар в форме, которую принимает chi.
type Middleware = func(http.Handler) http.Handler

// recorder запоминает итог ответа для строки http_request:
// первый выставленный статус (повторные WriteHeader net/http игнорирует) и число байт тела.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *recorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}

	n, err := r.ResponseWriter.Write(p)
	r.bytes += n

	return n, err
}

// Unwrap открывает исходный writer для http.ResponseController (Flush, дедлайны записи).
func (r *recorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Status — итоговый код; обработчик, ничего не записавший, отвечает 200.
func (r *recorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}

	return r.status
}
