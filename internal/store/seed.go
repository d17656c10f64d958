package store

import "fmt"

// demoData is a small lexicon for development databases and tests.
const demoData = `
INSERT OR IGNORE INTO frequency (id, input, freq, chhan_id) VALUES
 (1, 'ê', 33807, 32),
 (2, 'góa', 15113, 36),
 (3, 'lí', 13744, 44),
 (4, 'bô', 12353, 40),
 (5, 'i', 12275, 34),
 (6, 'ū', 12082, 35),
 (7, 'sī', 10206, 33),
 (8, 'lâng', 9492, 7),
 (9, 'lâi', 9429, 3),
 (10, 'tio̍h', 8871, 10),
 (11, 'chit', 8000, 50),
 (12, 'a', 7000, 51),
 (13, 'ah', 6000, 52),
 (14, 'tāi', 5000, 53),
 (15, 'chi', 4000, 54),
 (16, 'bo̍k', 3000, 55),
 (17, 'khì', 2500, 56),
 (18, 'a-bó', 2000, 57);

INSERT OR IGNORE INTO conversions (id, input_id, output, weight) VALUES
 (97, 4, '無', 1000),
 (98, 4, 'bô', 900),
 (460, 2, '我', 1000),
 (461, 2, 'góa', 900),
 (593, 5, '伊', 1000),
 (594, 5, 'i', 900),
 (1136, 9, '來', 1000),
 (1137, 9, 'lâi', 900),
 (1140, 8, '人', 1000),
 (1141, 8, '籠', 1000),
 (1142, 8, 'lâng', 900),
 (1167, 3, '李', 1000),
 (1168, 3, '汝', 1000),
 (1169, 3, 'Lí', 900),
 (1170, 3, 'lí', 900),
 (1714, 7, '是', 1000),
 (1715, 7, '示', 1000),
 (1716, 7, 'sī', 900),
 (1813, 10, '着', 1000),
 (1814, 10, 'tio̍h', 900),
 (2074, 1, '个', 1000),
 (2075, 1, '兮', 1000),
 (2076, 1, '鞋', 1000),
 (2077, 1, 'ê', 900),
 (2148, 6, '有', 1000),
 (2149, 6, 'ū', 900),
 (3001, 11, '一', 1000),
 (3002, 11, '這', 1000),
 (3003, 11, 'chit', 900),
 (3011, 12, '阿', 1000),
 (3012, 12, 'a', 900),
 (3021, 13, '啊', 1000),
 (3022, 13, 'ah', 900),
 (3031, 14, '代', 1000),
 (3032, 14, 'tāi', 900),
 (3041, 15, '之', 1000),
 (3042, 15, 'chi', 900),
 (3051, 16, '木', 1000),
 (3052, 16, 'bo̍k', 900),
 (3061, 17, '去', 1000),
 (3062, 17, 'khì', 900),
 (3071, 18, '阿母', 1000),
 (3072, 18, 'a-bó', 900);

INSERT OR IGNORE INTO syllables (input) VALUES
 ('a'), ('ah'), ('ahⁿ'), ('ai'), ('aih'), ('aihⁿ'), ('aiⁿ'), ('ak'), ('am'), ('an'),
 ('bo'), ('bok'), ('chi'), ('chit'), ('e'), ('goa'), ('i'), ('khi'),
 ('lai'), ('lang'), ('li'), ('si'), ('tai'), ('tioh'), ('u');

INSERT OR IGNORE INTO symbols (id, input, output, category, annotation) VALUES
 (1, '!', '!', 0, NULL),
 (2, '!', '！', 1, NULL),
 (3, '"', '"', 0, NULL),
 (4, '"', '＂', 1, NULL),
 (5, '"', '“”', 0, NULL),
 (6, '"', '‘’', 0, NULL),
 (7, '#', '#', 0, NULL),
 (8, '#', '＃', 1, NULL),
 (9, '$', '$', 0, NULL),
 (10, '$', '¢', 0, NULL),
 (11, '.', '。', 1, NULL),
 (12, ',', '，', 1, NULL),
 (13, '?', '？', 1, NULL);

INSERT OR IGNORE INTO emoji (id, emoji, short_name, category, code) VALUES
 (1, '😀', 'grinning face', 1, 'U+1F600'),
 (2, '😃', 'grinning face with big eyes', 1, 'U+1F603'),
 (3, '😄', 'grinning face with smiling eyes', 1, 'U+1F604'),
 (4, '😁', 'beaming face with smiling eyes', 1, 'U+1F601'),
 (5, '😆', 'grinning squinting face', 1, 'U+1F606'),
 (6, '😅', 'grinning face with sweat', 1, 'U+1F605'),
 (7, '🤣', 'rolling on the floor laughing', 1, 'U+1F923'),
 (8, '😂', 'face with tears of joy', 1, 'U+1F602'),
 (9, '🙂', 'slightly smiling face', 1, 'U+1F642'),
 (10, '🙃', 'upside-down face', 1, 'U+1F643');
`

// SeedDemo loads the demo lexicon into s. Existing rows are kept.
func SeedDemo(s *Store) error {
	if s.db == nil {
		return ErrClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(demoData); err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// OpenDemo returns an in-memory store holding the demo lexicon.
func OpenDemo() (*Store, error) {
	s, err := OpenMemory()
	if err != nil {
		return nil, err
	}
	if err := SeedDemo(s); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
