// Package problems provides the seed question catalog and the
// deterministic fallback problem generator.
package problems

import "github.com/codejitsu/codejitsu/internal/domain"

// Catalog is the built-in set of practice questions served by the browser.
// Generated questions replace the active question but never join the catalog.
var Catalog = []domain.Question{
	{
		ID:          1,
		Title:       "Two Sum",
		Difficulty:  domain.DifficultyEasy,
		Category:    "Arrays",
		Description: "Given an array of integers nums and an integer target, return indices of the two numbers such that they add up to target.",
		Examples: []domain.Example{
			{Input: "nums = [2,7,11,15], target = 9", Output: "[0,1]", Explanation: "Because nums[0] + nums[1] == 9, we return [0, 1]."},
			{Input: "nums = [3,2,4], target = 6", Output: "[1,2]", Explanation: "Because nums[1] + nums[2] == 6, we return [1, 2]."},
		},
		Constraints: []string{
			"2 <= nums.length <= 10^4",
			"-10^9 <= nums[i] <= 10^9",
			"-10^9 <= target <= 10^9",
			"Only one valid answer exists.",
		},
		Starter:  "def two_sum(nums, target):\n    \"\"\"\n    Find two numbers that add up to target.\n\n    Args:\n        nums: List of integers\n        target: Target sum\n\n    Returns:\n        List of two indices\n    \"\"\"\n    # Write your solution here\n    pass",
		Solution: "def two_sum(nums, target):\n    num_map = {}\n    for i, num in enumerate(nums):\n        complement = target - num\n        if complement in num_map:\n            return [num_map[complement], i]\n        num_map[num] = i\n    return []",
		Hints: []string{
			"Try using a hash map to store numbers you've seen",
			"For each number, check if its complement exists in the map",
			"The complement is target - current_number",
		},
	},
	{
		ID:          2,
		Title:       "Valid Parentheses",
		Difficulty:  domain.DifficultyEasy,
		Category:    "Stack",
		Description: "Given a string s containing just the characters '(', ')', '{', '}', '[' and ']', determine if the input string is valid. An input string is valid if: Open brackets must be closed by the same type of brackets in the correct order.",
		Examples: []domain.Example{
			{Input: "s = \"()\"", Output: "true", Explanation: "The string contains valid parentheses."},
			{Input: "s = \"()[]{}\"", Output: "true", Explanation: "All brackets are properly matched."},
			{Input: "s = \"(]\"", Output: "false", Explanation: "Brackets are not properly matched."},
		},
		Constraints: []string{
			"1 <= s.length <= 10^4",
			"s consists of parentheses only '()[]{}'.",
		},
		Starter:  "def is_valid(s):\n    \"\"\"\n    Check if parentheses are valid.\n\n    Args:\n        s: String containing only parentheses\n\n    Returns:\n        Boolean indicating if parentheses are valid\n    \"\"\"\n    # Write your solution here\n    pass",
		Solution: "def is_valid(s):\n    stack = []\n    mapping = {')': '(', '}': '{', ']': '['}\n\n    for char in s:\n        if char in mapping:\n            if not stack or stack.pop() != mapping[char]:\n                return False\n        else:\n            stack.append(char)\n\n    return len(stack) == 0",
		Hints: []string{
			"Use a stack data structure",
			"Push opening brackets onto the stack",
			"When you see a closing bracket, check if it matches the top of the stack",
		},
	},
	{
		ID:          3,
		Title:       "Binary Tree Inorder Traversal",
		Difficulty:  domain.DifficultyEasy,
		Category:    "Trees",
		Description: "Given the root of a binary tree, return the inorder traversal of its nodes' values.",
		Examples: []domain.Example{
			{Input: "root = [1,null,2,3]", Output: "[1,3,2]", Explanation: "Inorder traversal visits nodes in left-root-right order."},
			{Input: "root = []", Output: "[]", Explanation: "Empty tree returns empty list."},
			{Input: "root = [1]", Output: "[1]", Explanation: "Single node returns list with one element."},
		},
		Constraints: []string{
			"The number of nodes in the tree is in the range [0, 100].",
			"-100 <= Node.val <= 100",
		},
		Starter:  "# Definition for a binary tree node.\nclass TreeNode:\n    def __init__(self, val=0, left=None, right=None):\n        self.val = val\n        self.left = left\n        self.right = right\n\ndef inorder_traversal(root):\n    \"\"\"\n    Perform inorder traversal of binary tree.\n\n    Args:\n        root: TreeNode representing root of binary tree\n\n    Returns:\n        List of values in inorder sequence\n    \"\"\"\n    # Write your solution here\n    pass",
		Solution: "def inorder_traversal(root):\n    result = []\n\n    def inorder(node):\n        if node:\n            inorder(node.left)\n            result.append(node.val)\n            inorder(node.right)\n\n    inorder(root)\n    return result",
		Hints: []string{
			"Inorder traversal: left subtree, root, right subtree",
			"Use recursion or an iterative approach with a stack",
			"For recursion: process left, add current value, process right",
		},
	},
	{
		ID:          4,
		Title:       "Reverse Linked List",
		Difficulty:  domain.DifficultyEasy,
		Category:    "Linked Lists",
		Description: "Given the head of a singly linked list, reverse the list, and return the reversed list.",
		Examples: []domain.Example{
			{Input: "head = [1,2,3,4,5]", Output: "[5,4,3,2,1]", Explanation: "The linked list is reversed."},
			{Input: "head = [1,2]", Output: "[2,1]", Explanation: "Two node list is reversed."},
			{Input: "head = []", Output: "[]", Explanation: "Empty list remains empty."},
		},
		Constraints: []string{
			"The number of nodes in the list is the range [0, 5000].",
			"-5000 <= Node.val <= 5000",
		},
		Starter:  "# Definition for singly-linked list.\nclass ListNode:\n    def __init__(self, val=0, next=None):\n        self.val = val\n        self.next = next\n\ndef reverse_list(head):\n    \"\"\"\n    Reverse a singly linked list.\n\n    Args:\n        head: ListNode representing head of linked list\n\n    Returns:\n        ListNode representing head of reversed list\n    \"\"\"\n    # Write your solution here\n    pass",
		Solution: "def reverse_list(head):\n    prev = None\n    current = head\n\n    while current:\n        next_temp = current.next\n        current.next = prev\n        prev = current\n        current = next_temp\n\n    return prev",
		Hints: []string{
			"Keep track of three pointers: previous, current, and next",
			"Iteratively reverse the links between nodes",
			"Don't forget to update all pointers in each iteration",
		},
	},
	{
		ID:          5,
		Title:       "Maximum Subarray",
		Difficulty:  domain.DifficultyMedium,
		Category:    "Dynamic Programming",
		Description: "Given an integer array nums, find the contiguous subarray (containing at least one number) which has the largest sum and return its sum.",
		Examples: []domain.Example{
			{Input: "nums = [-2,1,-3,4,-1,2,1,-5,4]", Output: "6", Explanation: "[4,-1,2,1] has the largest sum = 6."},
			{Input: "nums = [1]", Output: "1", Explanation: "Single element array."},
			{Input: "nums = [5,4,-1,7,8]", Output: "23", Explanation: "Entire array has the largest sum."},
		},
		Constraints: []string{
			"1 <= nums.length <= 10^5",
			"-10^4 <= nums[i] <= 10^4",
		},
		Starter:  "def max_subarray(nums):\n    \"\"\"\n    Find the maximum sum of contiguous subarray.\n\n    Args:\n        nums: List of integers\n\n    Returns:\n        Integer representing maximum subarray sum\n    \"\"\"\n    # Write your solution here\n    pass",
		Solution: "def max_subarray(nums):\n    max_sum = nums[0]\n    current_sum = nums[0]\n\n    for i in range(1, len(nums)):\n        current_sum = max(nums[i], current_sum + nums[i])\n        max_sum = max(max_sum, current_sum)\n\n    return max_sum",
		Hints: []string{
			"This is a classic dynamic programming problem (Kadane's algorithm)",
			"At each position, decide whether to start a new subarray or extend the current one",
			"Keep track of both current sum and maximum sum seen so far",
		},
	},
}

// ByID returns the catalog question with the given ID.
func ByID(id int) (*domain.Question, bool) {
	for i := range Catalog {
		if Catalog[i].ID == id {
			q := Catalog[i]
			return &q, true
		}
	}
	return nil, false
}
