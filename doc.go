// Package imoji is a client SDK for the imoji sticker service.
//
// A Session fetches, searches and renders stickers and can be synchronized
// with a user account through a handshake with the companion imoji app.
//
// Basic Usage:
//
//	cfg, err := imoji.LoadConfig()
//	if err != nil {
//		return err
//	}
//	sess, err := imoji.NewDefault(imoji.WithConfig(cfg))
//	if err != nil {
//		return err
//	}
//	defer sess.Close()
//
//	sess.Search("cat", imoji.SearchOptions{},
//		func(count int, err error) {
//			// called first, count is 0 when err is set
//		},
//		func(im *imoji.Imoji, index int, err error) {
//			// called once per result after its thumbnail is cached
//		},
//	)
//
// Operations:
//
// Every network call returns an *Operation. Callbacks of one operation run
// one at a time, by default on the operation's own goroutine; WithDispatcher
// moves them elsewhere (a UI loop, for example). After Cancel returns no
// further callback of that operation runs, and cancellation is never
// reported as an error.
//
// Storage:
//
// A StoragePolicy decides where source assets are cached and where the
// sealed user token is persisted. TemporaryDiskStoragePolicy keeps assets in
// a throwaway directory and the user token in memory. The cache path may
// also be an s3://bucket/prefix URL.
//
// User synchronization:
//
//	sess.RequestUserSynchronization()      // opens imoji://authorize?...
//	// later, when the host app is opened with <scheme>://imoji/sync?...
//	if sess.IsImojiAppRequest(u, sourceApp) {
//		sess.HandleImojiAppRequest(ctx, u, sourceApp)
//	}
//
// Errors:
//
// Failures are *Error values carrying an ErrorCode. Compare with errors.Is
// against the package sentinels such as ErrSessionNotSynchronized.
package imoji
