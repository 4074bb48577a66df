// Package shutdown turns termination signals into context cancellation
// and runs named cleanup steps, in order, under one grace period.
//
//	ctx, stop := shutdown.WithSignals(context.Background())
//	defer stop()
//	<-ctx.Done()
//
//	seq := shutdown.NewSequence(grace)
//	seq.Add("http", srv.Shutdown)
//	err := seq.Run(context.Background())
package shutdown
