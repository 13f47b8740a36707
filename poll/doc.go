/*
Package poll implements the reaction-based poll engine.

A poll is defined by a single semicolon-delimited command:

	question;answer1;answer2;...;[n=K;][t=SECONDS]

ParseSpec validates the definition and assigns each answer a symbol from a
fixed alphabet (keycap digits, then letter indicators). A Session then owns
the poll's lifecycle: it posts the announcement, attaches one reaction per
answer, collects reaction-vote events, and closes either when its timer
expires or when the initiating user issues a stop.

While a poll is open the session tracks each voter's held symbols and
retracts the oldest one when a voter exceeds the allowed number of
selections. That ledger only limits reaction clutter; the final tally is
read back from the platform's reaction counts at close time, minus the
bot's own reservation reaction on each answer.

The Registry enforces at most one live poll per channel. The engine talks
to the chat platform exclusively through the Platform interface.
*/
package poll
