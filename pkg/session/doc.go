/*
Package session keeps named command logs alive between requests.

A command log is not safe for concurrent use, so every operation on a session runs
under that session's lock. Locks are reference counted and dropped once idle.
Servers running several replicas against one journal can add a ports.DistributedLocker.
*/
package session
