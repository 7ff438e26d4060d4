package singleinstance

import "context"

// Serve answers OPEN requests with open until ctx is cancelled. A nil error
// from open is reported as OK, anything else as ERROR with its message.
func Serve(ctx context.Context, srv Server, open func(path string) error) {
	for {
		conn, err := srv.Next(ctx)
		if err != nil {
			return
		}
		if err := open(conn.Request().Path); err != nil {
			_ = conn.RespondError(err.Error())
		} else {
			_ = conn.RespondSuccess()
		}
		_ = conn.Close()
	}
}
