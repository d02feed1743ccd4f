// Package fuzztests houses Go fuzz harnesses for the IR codec and the
// module generator. Decoding arbitrary bytes must never panic or hang, and
// every module the decoder accepts and the validator approves must survive
// another encode/decode round trip unchanged.
//
// Corpus seeds come from the testkit fixtures, a few generated modules and
// any *.tirb files under testdata/.
package fuzztests
