// Package tail reads the end of line-oriented input.
//
// Last keeps a sliding window of the most recent lines in a ringbuffer.RingBuffer,
// so memory stays bounded by the requested line count however long the input is:
//
//	lines, err := tail.Last(os.Stdin, 10)
//
// Follower watches a file with fsnotify and writes each appended line into a
// buffer.Buffer. The buffer's overflow policy decides what happens when the
// consumer falls behind. A periodic poll covers filesystems that deliver no
// events. Truncation restarts reading at the beginning of the file. A file that
// is removed or renamed is reopened from the start when it reappears.
//
//	buf, _ := buffer.NewCircularBuffer[string](1000)
//	f, err := tail.NewFollower("/var/log/app.log", buf,
//		tail.WithLogger(logger),
//		tail.WithLineHandler(func(string) { notify() }),
//	)
//	if err != nil {
//		return err
//	}
//	go f.Run(ctx)
package tail
