/*Package drover is a process-parallel task dispatch engine.

It distributes a computation -- either a task invoked once per worker, or a
task applied to contiguous chunks of an input sequence -- across a pool of
OS-level worker processes sized to a caller-specified percentage of the
host's cores, and returns the reassembled results together with execution
telemetry.

Workers are real processes: drover re-executes the hosting binary in worker
mode and exchanges codec-framed messages with it over stdin/stdout pipes.
Task inputs and outputs cross the process boundary by value, so there is no
shared memory between the driver and its workers, and nothing a task does
can race against its siblings.

Because tasks cross a process boundary, they are registered by name with
Register, and the registration must run identically in both the driver and
the re-executed worker (package init is the natural place). Results always
come back in unit index order, no matter which worker finishes first.
*/
package drover
