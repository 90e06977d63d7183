// Package logrotate rotates, compresses and prunes the log files of a single
// directory, and multiplexes live follow reads of its files.
//
// Log files follow a fixed naming convention that encodes the id of the
// owning process and a rotation sequence:
//
//	ops.25559.log.001     active
//	ops.25559.log.001.gz  archived
//
// A Manager watches the directory and rescans it on every change
// notification:
//
//	mgr, err := logrotate.New(logrotate.Config{LogDir: "/var/log/app"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := mgr.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Stop()
//
// Each rescan compresses the active files of processes that are no longer
// running, compresses all but the newest MaxNumberActiveFiles files of each
// live process, and deletes archives older than RetentionDays.
//
// # Following files
//
// TailFollow subscribes to a growing file. Any number of subscribers share
// one follow process per file; StopTailFollowing removes exactly one
// subscription by its ListenerID and kills the process when the last one
// leaves:
//
//	err := mgr.TailFollow(logrotate.FollowOptions{
//	    File:   "/var/log/app/ops.25559.log.001",
//	    OnData: func(b []byte) { os.Stdout.Write(b) },
//	    OnRegistration: func(err error, file string, id logrotate.ListenerID) {
//	        // keep id for StopTailFollowing
//	    },
//	})
//
// # Concurrency
//
// Rescans are never serialized against each other or against direct calls
// such as Gzip. Every destructive step checks that its target exists, acts,
// and tolerates the target disappearing in between, so overlapping passes
// are safe. Stop is the only cancellation: it does not wait for in-flight
// work and kills every follow process.
package logrotate
