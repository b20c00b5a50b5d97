/*
Package transaction groups mutations into an all-or-nothing unit.

A transaction moves through:

	pending -> committing -> committed
	                      -> rolling_back -> rolled_back
	                                      -> failed

Commit applies steps strictly in insertion order, capturing a backup of
each target before its step runs. When step k fails, steps k-1 down to 1
are reverted in that order and Commit returns a *CommitError with Step k.
If a reversal itself fails, the transaction ends in failed and Commit
returns a *RollbackError; the filesystem then needs reconciliation, which
the per-step Applied and Reverted flags in Status support.

Commit, Rollback and AddOperation on a transaction that is not pending
return ErrInvalidState without touching the filesystem.

Concurrent transactions on overlapping paths are not isolated from each
other.
*/
package transaction
