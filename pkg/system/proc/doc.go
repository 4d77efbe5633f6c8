// Package proc scans the live process table for a benchmark script launched
// through a language runtime, e.g. `python bench_dict.py` or
// `python -m tests.bench_dict`.
//
// Overview
//
//   - Table: lists processes with their invocation arguments.
//     ProcfsTable reads /proc through prometheus/procfs (Linux);
//     PsutilTable uses gopsutil and works on every platform gopsutil supports.
//     NewTable picks a backend by name.
//
//   - Matching: a process is a script invocation when its first argument
//     contains the runtime name. The script is the second argument, or the
//     third when the second is the module flag "-m". A process matches when
//     the target string is a substring of that script name. Matching is loose
//     on purpose and is not narrowed to a PID; two benchmarks whose names
//     contain the same target string are indistinguishable.
//
//   - Watcher: IsTargetRunning(ctx, target, previous) runs one scan and fires
//     the OnDetect hook on the not-running -> running edge. The profiling
//     session uses that hook to perform its one-time rendezvous.
//
// Per-entry failures (a process exiting mid-scan, permission denied on its
// cmdline) skip that entry. Only a failure to list the table itself is
// returned to the caller.
package proc
