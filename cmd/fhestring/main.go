// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Command fhestring runs string operations homomorphically and prints
// the decrypted results next to their plaintext counterparts. It is a
// demonstration driver: keys are generated on the fly and operands are
// encrypted locally.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	fhestring "github.com/luxfi/fhestring"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	flagString    string
	flagPattern   string
	flagPatternTo string
	padString     int
	padPattern    int
	padTo         int
	flagN         int
	flagEncrypt   bool
)

var rootCmd = &cobra.Command{
	Use:   "fhestring",
	Short: "Oblivious string operations over encrypted ASCII strings",
	Long: `fhestring encrypts the given operands, runs a family of string
operations homomorphically, and prints the decrypted results next to
what the plaintext operation produces.

By default operands are trivially encoded, which exercises the full
oblivious control flow without bootstrapping cost. Pass --encrypt to
run on real ciphertexts.`,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagString, "string", "s", "", "subject string")
	pf.StringVarP(&flagPattern, "pattern", "p", "", "pattern operand")
	pf.StringVarP(&flagPatternTo, "pattern-to", "t", "", "replacement operand")
	pf.IntVar(&padString, "padding-string", 0, "padding cells appended to the string")
	pf.IntVar(&padPattern, "padding-pattern", 0, "padding cells appended to the pattern")
	pf.IntVar(&padTo, "padding-to", 0, "padding cells appended to the replacement")
	pf.IntVarP(&flagN, "n", "n", 1, "count for splitn, replacen and repeat")
	pf.BoolVar(&flagEncrypt, "encrypt", false, "use real encryption instead of trivial encoding")

	rootCmd.MarkPersistentFlagRequired("string")

	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(caseCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(trimCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(replaceCmd)
	rootCmd.AddCommand(repeatCmd)
	rootCmd.AddCommand(allCmd)
}

// env carries the generated keys and encrypted operands for one run.
type env struct {
	ck      *fhestring.ClientKey
	sk      *fhestring.ServerKey
	str     *fhestring.FheString
	pattern *fhestring.FheString
	to      *fhestring.FheString
}

func setup(needPattern, needTo bool) (*env, error) {
	if needPattern && !flagSet("pattern") {
		return nil, fmt.Errorf("this command requires --pattern")
	}
	if needTo && !flagSet("pattern-to") {
		return nil, fmt.Errorf("this command requires --pattern-to")
	}

	params, err := fhestring.NewParametersFromLiteral(fhestring.PN10QP27)
	if err != nil {
		return nil, err
	}
	kg := fhestring.NewKeyGenerator(params)
	secret := kg.GenSecretKey()

	e := &env{ck: fhestring.NewClientKey(params, secret)}
	if flagEncrypt {
		start := time.Now()
		e.sk = fhestring.NewServerKey(params, kg.GenBootstrapKey(secret))
		fmt.Printf("key generation: %v\n", time.Since(start))
	} else {
		e.sk = fhestring.NewServerKey(params, nil)
	}

	if e.str, err = e.encrypt(flagString, padString); err != nil {
		return nil, err
	}
	if needPattern || flagSet("pattern") {
		if e.pattern, err = e.encrypt(flagPattern, padPattern); err != nil {
			return nil, err
		}
	}
	if needTo || flagSet("pattern-to") {
		if e.to, err = e.encrypt(flagPatternTo, padTo); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func flagSet(name string) bool {
	return rootCmd.PersistentFlags().Changed(name)
}

func (e *env) encrypt(value string, padding int) (*fhestring.FheString, error) {
	fs, err := fhestring.NewFheString(value)
	if err != nil {
		return nil, err
	}
	if flagEncrypt {
		return fs.Encrypt(e.ck.Encryptor(), padding)
	}
	return fs.TrivialEncrypt(padding)
}

func (e *env) decrypt(s *fhestring.FheString) string {
	if s.IsClear() {
		return s.ClearString()
	}
	out, err := e.ck.DecryptToString(s)
	if err != nil {
		return fmt.Sprintf("<decrypt error: %v>", err)
	}
	return out
}

func report(name string, fhe, std any) {
	marker := ""
	if fmt.Sprint(fhe) != fmt.Sprint(std) {
		marker = "   <- differs"
	}
	fmt.Printf("  %-18s fhe=%-30v std=%-30v%s\n", name+":", fhe, std, marker)
}

func reportBool(e *env, name string, c *fhestring.Ciphertext, std bool) {
	report(name, e.ck.DecryptBool(c), std)
}

func runOrDie(f func(e *env) error, needPattern, needTo bool) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		e, err := setup(needPattern, needTo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer e.sk.Close()
		if err := f(e); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Equality and lexicographic ordering",
	Run:   runOrDie(runCompare, true, false),
}

func runCompare(e *env) error {
	fmt.Printf("compare %q and %q\n", flagString, flagPattern)
	ops := []struct {
		name string
		fn   func(a, b *fhestring.FheString) (*fhestring.Ciphertext, error)
		std  bool
	}{
		{"eq", e.sk.Eq, flagString == flagPattern},
		{"ne", e.sk.Ne, flagString != flagPattern},
		{"lt", e.sk.Lt, flagString < flagPattern},
		{"le", e.sk.Le, flagString <= flagPattern},
		{"gt", e.sk.Gt, flagString > flagPattern},
		{"ge", e.sk.Ge, flagString >= flagPattern},
		{"eq_ignore_case", e.sk.EqIgnoreCase, strings.EqualFold(flagString, flagPattern)},
	}
	for _, op := range ops {
		c, err := op.fn(e.str, e.pattern)
		if err != nil {
			return fmt.Errorf("%s: %w", op.name, err)
		}
		reportBool(e, op.name, c, op.std)
	}
	return nil
}

var caseCmd = &cobra.Command{
	Use:   "case",
	Short: "Upper and lower casing",
	Run:   runOrDie(runCase, false, false),
}

func runCase(e *env) error {
	fmt.Printf("case %q\n", flagString)
	up, err := e.sk.ToUpperCase(e.str)
	if err != nil {
		return err
	}
	report("upper", e.decrypt(up), strings.ToUpper(flagString))

	lo, err := e.sk.ToLowerCase(e.str)
	if err != nil {
		return err
	}
	report("lower", e.decrypt(lo), strings.ToLower(flagString))
	return nil
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Pattern search",
	Run:   runOrDie(runSearch, true, false),
}

func runSearch(e *env) error {
	fmt.Printf("search for %q in %q\n", flagPattern, flagString)
	ops := []struct {
		name string
		fn   func(s, pat *fhestring.FheString) (*fhestring.Ciphertext, error)
		std  bool
	}{
		{"contains", e.sk.Contains, strings.Contains(flagString, flagPattern)},
		{"starts_with", e.sk.StartsWith, strings.HasPrefix(flagString, flagPattern)},
		{"ends_with", e.sk.EndsWith, strings.HasSuffix(flagString, flagPattern)},
	}
	for _, op := range ops {
		c, err := op.fn(e.str, e.pattern)
		if err != nil {
			return fmt.Errorf("%s: %w", op.name, err)
		}
		reportBool(e, op.name, c, op.std)
	}

	index, found, err := e.sk.Find(e.str, e.pattern)
	if err != nil {
		return err
	}
	report("find", fmt.Sprintf("(%d, %v)", e.ck.DecryptUint64(index), e.ck.DecryptBool(found)),
		fmt.Sprintf("(%d, %v)", max(strings.Index(flagString, flagPattern), 0),
			strings.Contains(flagString, flagPattern)))

	index, found, err = e.sk.RFind(e.str, e.pattern)
	if err != nil {
		return err
	}
	report("rfind", fmt.Sprintf("(%d, %v)", e.ck.DecryptUint64(index), e.ck.DecryptBool(found)),
		fmt.Sprintf("(%d, %v)", max(strings.LastIndex(flagString, flagPattern), 0),
			strings.Contains(flagString, flagPattern)))
	return nil
}

var trimCmd = &cobra.Command{
	Use:   "trim",
	Short: "Whitespace trimming and prefix/suffix stripping",
	Run:   runOrDie(runTrim, false, false),
}

func runTrim(e *env) error {
	fmt.Printf("trim %q\n", flagString)
	ops := []struct {
		name string
		fn   func(s *fhestring.FheString) (*fhestring.FheString, error)
		std  string
	}{
		{"trim", e.sk.Trim, strings.TrimSpace(flagString)},
		{"trim_start", e.sk.TrimStart, strings.TrimLeft(flagString, " \t\n\r\v\f")},
		{"trim_end", e.sk.TrimEnd, strings.TrimRight(flagString, " \t\n\r\v\f")},
	}
	for _, op := range ops {
		out, err := op.fn(e.str)
		if err != nil {
			return fmt.Errorf("%s: %w", op.name, err)
		}
		report(op.name, e.decrypt(out), op.std)
	}

	if e.pattern == nil {
		return nil
	}
	out, found, err := e.sk.StripPrefix(e.str, e.pattern)
	if err != nil {
		return err
	}
	std, _ := strings.CutPrefix(flagString, flagPattern)
	report("strip_prefix", fmt.Sprintf("(%q, %v)", e.decrypt(out), e.ck.DecryptBool(found)),
		fmt.Sprintf("(%q, %v)", std, strings.HasPrefix(flagString, flagPattern)))

	out, found, err = e.sk.StripSuffix(e.str, e.pattern)
	if err != nil {
		return err
	}
	std, _ = strings.CutSuffix(flagString, flagPattern)
	report("strip_suffix", fmt.Sprintf("(%q, %v)", e.decrypt(out), e.ck.DecryptBool(found)),
		fmt.Sprintf("(%q, %v)", std, strings.HasSuffix(flagString, flagPattern)))
	return nil
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Splitting on a pattern or on whitespace",
	Run:   runOrDie(runSplit, true, false),
}

func (e *env) reportSplit(name string, res *fhestring.SplitResult, err error, std []string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	count := e.ck.DecryptUint64(res.Count)
	fields := make([]string, 0, count)
	for i := 0; i < int(count) && i < len(res.Fields); i++ {
		fields = append(fields, e.decrypt(res.Fields[i]))
	}
	report(name, fmt.Sprintf("%q (count %d)", fields, count), fmt.Sprintf("%q", std))
	return nil
}

func runSplit(e *env) error {
	fmt.Printf("split %q on %q\n", flagString, flagPattern)
	s, p := flagString, flagPattern

	res, err := e.sk.Split(e.str, e.pattern)
	if err := e.reportSplit("split", res, err, strings.Split(s, p)); err != nil {
		return err
	}
	res, err = e.sk.RSplit(e.str, e.pattern)
	if err := e.reportSplit("rsplit", res, err, reversed(strings.Split(s, p))); err != nil {
		return err
	}
	res, err = e.sk.SplitInclusive(e.str, e.pattern)
	if err := e.reportSplit("split_inclusive", res, err, strings.SplitAfter(s, p)); err != nil {
		return err
	}
	res, err = e.sk.SplitTerminator(e.str, e.pattern)
	if err := e.reportSplit("split_terminator", res, err, splitTerminator(s, p)); err != nil {
		return err
	}
	res, err = e.sk.RSplitTerminator(e.str, e.pattern)
	if err := e.reportSplit("rsplit_terminator", res, err, reversed(splitTerminator(s, p))); err != nil {
		return err
	}
	res, err = e.sk.SplitASCIIWhitespace(e.str)
	if err := e.reportSplit("split_whitespace", res, err, strings.Fields(s)); err != nil {
		return err
	}
	res, err = e.sk.SplitN(flagN, e.str, e.pattern)
	if err := e.reportSplit(fmt.Sprintf("splitn(%d)", flagN), res, err, strings.SplitN(s, p, flagN)); err != nil {
		return err
	}
	res, err = e.sk.RSplitN(flagN, e.str, e.pattern)
	if err := e.reportSplit(fmt.Sprintf("rsplitn(%d)", flagN), res, err, rsplitN(s, p, flagN)); err != nil {
		return err
	}

	parts, found, err := e.sk.SplitOnce(e.str, e.pattern)
	if err != nil {
		return err
	}
	before, after, ok := strings.Cut(s, p)
	report("split_once",
		fmt.Sprintf("(%q, %q, %v)", e.decrypt(parts[0]), e.decrypt(parts[1]), e.ck.DecryptBool(found)),
		fmt.Sprintf("(%q, %q, %v)", before, after, ok))
	return nil
}

var replaceCmd = &cobra.Command{
	Use:   "replace",
	Short: "Pattern replacement",
	Run:   runOrDie(runReplace, true, true),
}

func runReplace(e *env) error {
	fmt.Printf("replace %q with %q in %q\n", flagPattern, flagPatternTo, flagString)

	out, err := e.sk.Replace(e.str, e.pattern, e.to)
	if err != nil {
		return err
	}
	report("replace", e.decrypt(out), strings.ReplaceAll(flagString, flagPattern, flagPatternTo))

	out, err = e.sk.ReplaceN(e.str, e.pattern, e.to, flagN)
	if err != nil {
		return err
	}
	report(fmt.Sprintf("replacen(%d)", flagN), e.decrypt(out),
		strings.Replace(flagString, flagPattern, flagPatternTo, flagN))
	return nil
}

var repeatCmd = &cobra.Command{
	Use:   "repeat",
	Short: "Repetition, concatenation and padding compaction",
	Run:   runOrDie(runRepeat, false, false),
}

func runRepeat(e *env) error {
	fmt.Printf("repeat %q x%d\n", flagString, flagN)

	out, err := e.sk.Repeat(e.str, flagN)
	if err != nil {
		return err
	}
	report(fmt.Sprintf("repeat(%d)", flagN), e.decrypt(out), strings.Repeat(flagString, flagN))

	tidy, err := e.sk.MakeReusable(e.str)
	if err != nil {
		return err
	}
	report("make_reusable", e.decrypt(tidy), flagString)

	if e.pattern != nil {
		cat, err := e.sk.Concatenate(e.str, e.pattern)
		if err != nil {
			return err
		}
		report("concat", e.decrypt(cat), flagString+flagPattern)
	}
	return nil
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run every family",
	Run:   runOrDie(runAll, true, true),
}

func runAll(e *env) error {
	for _, f := range []func(*env) error{
		runCompare, runCase, runSearch, runTrim, runSplit, runReplace, runRepeat,
	} {
		if err := f(e); err != nil {
			return err
		}
	}
	return nil
}

func reversed(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

func splitTerminator(s, p string) []string {
	fields := strings.Split(s, p)
	if len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

func rsplitN(s, p string, n int) []string {
	if n <= 0 {
		return nil
	}
	fields := strings.Split(s, p)
	if len(fields) > n {
		head := strings.Join(fields[:len(fields)-n+1], p)
		fields = append([]string{head}, fields[len(fields)-n+1:]...)
	}
	return reversed(fields)
}
