// Package ime is the composition engine a platform input method talks to.
//
// The host forwards each key event as a Request. CmdTestSendKey asks
// whether the engine would consume a key without changing any state, and
// CmdSendKey applies it. Every response carries the preedit to draw at the
// insertion point, the candidate list and the edit state; a response with
// Committed set also carries the text to insert into the application.
//
//	Key Event → TestSendKey → SendKey → Preedit/Candidates → Commit Text
//
// An Engine owns the lexicon store, the dictionary, the candidate finder
// and the buffer manager. CmdSetConfig rebuilds all of them from the new
// configuration. Requests are serialized, so an Engine may be shared by
// several host threads.
package ime
