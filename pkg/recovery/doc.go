/*
Package recovery implements the bounded, cooled-down restart policy.

Each supervised service carries a restart counter and a last-restart
timestamp. A failing service is restarted only when it is outside its
cooldown window and under its restart budget; the attempt is charged
before the restart outcome is known, which stops rapid retry loops even
when the restart command itself fails. A successful probe — whether the
post-restart re-probe or an ordinary one — resets the counter, so a
service that heals on its own clears its failure history.

Cooldown is evaluated before budget. A service that is simultaneously
over budget and in cooldown reports cooldown as the skip reason; the
ordering is part of the policy contract, not an artifact.
*/
package recovery
