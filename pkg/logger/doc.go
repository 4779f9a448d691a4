// Package logger builds the *slog.Logger values used across the SDK.
//
// New creates a JSON (or text) logger whose handler injects the operation id
// stored with WithOperationID, so every line logged while serving one SDK
// operation carries "operation_id". Extra ContextExtractor callbacks add
// further attributes from the record's context.
//
//	log := logger.New(logger.WithLevel(slog.LevelDebug), logger.WithTextFormatter())
//	ctx := logger.WithOperationID(ctx, op.ID().String())
//	log.InfoContext(ctx, "search started", logger.Count(n))
//
// Decorate adds the same injection to a logger supplied by the host
// application, and Discard returns the silent logger a Session uses by
// default.
//
// Attribute helpers such as Error, ImojiID and Endpoint keep key names
// consistent across packages.
package logger
